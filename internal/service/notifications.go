package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/logger"
	"github.com/dexgate/dexgate/internal/zrx"
)

// Broadcaster pushes notifications to live subscribers (websocket stream).
type Broadcaster interface {
	Broadcast(n model.Notification)
}

// PendingStore persists pending gasless trades so a restart does not lose
// notification bookkeeping. Optional.
type PendingStore interface {
	SavePending(ctx context.Context, trade model.PendingTrade) error
	RemovePending(ctx context.Context, tradeHash string) error
}

// Notifier owns the pending gasless trade queue. The settlement orchestrator
// appends to it; a watcher goroutine drains it over a channel, follows each
// trade to a terminal relayer status and emits the final notification. No
// external code mutates the list directly.
type Notifier struct {
	poller *StatusPoller
	hub    Broadcaster
	store  PendingStore

	queue chan model.PendingTrade

	mu            sync.Mutex
	notifications []model.Notification

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotifier(poller *StatusPoller, hub Broadcaster, store PendingStore) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		poller: poller,
		hub:    hub,
		store:  store,
		queue:  make(chan model.PendingTrade, 128),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the pending-trade watcher in a background goroutine.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.watchLoop()
}

// Stop cancels all in-flight watchers and waits for them to exit. No timer
// may keep firing after teardown.
func (n *Notifier) Stop() {
	n.cancel()
	n.wg.Wait()
}

// RecordPending enqueues a submitted gasless trade for status tracking.
func (n *Notifier) RecordPending(trade model.PendingTrade) {
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}
	if n.store != nil {
		if err := n.store.SavePending(n.ctx, trade); err != nil {
			logger.Warn("failed to persist pending trade", "trade_hash", trade.TradeHash, "error", err)
		}
	}
	select {
	case n.queue <- trade:
	case <-n.ctx.Done():
	}
}

// Notify records a finished notification and pushes it to subscribers.
func (n *Notifier) Notify(notification model.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	n.mu.Lock()
	n.notifications = append(n.notifications, notification)
	n.mu.Unlock()

	if n.hub != nil {
		n.hub.Broadcast(notification)
	}
}

// Drain returns accumulated notifications and clears the list.
func (n *Notifier) Drain() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.notifications
	n.notifications = nil
	return out
}

func (n *Notifier) watchLoop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case trade := <-n.queue:
			n.wg.Add(1)
			go func() {
				defer n.wg.Done()
				n.watchTrade(trade)
			}()
		}
	}
}

func (n *Notifier) watchTrade(trade model.PendingTrade) {
	status, err := n.poller.Await(n.ctx, trade.TradeHash, nil)
	if err != nil {
		// Cancelled teardown; the pending record stays for the next run.
		logger.Warn("stopped watching gasless trade", "trade_hash", trade.TradeHash, "error", err)
		return
	}

	if n.store != nil {
		if err := n.store.RemovePending(n.ctx, trade.TradeHash); err != nil {
			logger.Warn("failed to remove pending trade", "trade_hash", trade.TradeHash, "error", err)
		}
	}

	notification := model.Notification{
		Type:    "transaction",
		Subtype: trade.Subtype,
		Metadata: model.NotificationMetadata{
			ChainID: trade.ChainID,
		},
		Values: trade.Values,
	}

	state := DeriveTradeState(trade.TradeHash, status)
	switch status.Status {
	case zrx.StatusSucceeded:
		if state.SuccessTx != nil {
			notification.Metadata.Hash = state.SuccessTx.Hash
		}
	case zrx.StatusFailed:
		// Surface the relayer-provided reason verbatim.
		if notification.Values == nil {
			notification.Values = map[string]string{}
		}
		notification.Values["reason"] = state.ReasonFailed
	}

	logger.Info("gasless trade reached terminal status",
		"trade_hash", trade.TradeHash, "status", status.Status)
	n.Notify(notification)
}
