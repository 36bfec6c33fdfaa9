package service

import (
	"context"
	"time"

	"github.com/dexgate/dexgate/internal/pkg/logger"
	"github.com/dexgate/dexgate/internal/pkg/metrics"
	"github.com/dexgate/dexgate/internal/zrx"
)

// StatusAPI is the slice of the swap client the poller needs.
type StatusAPI interface {
	TradeStatus(ctx context.Context, tradeHash string) (*zrx.TradeStatusResponse, error)
}

// StatusPoller drives a submitted gasless trade to a terminal status by
// polling the relayer at a fixed interval. No backoff and no attempt cap:
// the flow either reaches succeeded/failed or is cancelled by its context.
type StatusPoller struct {
	api      StatusAPI
	interval time.Duration
}

func NewStatusPoller(api StatusAPI, interval time.Duration) *StatusPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StatusPoller{api: api, interval: interval}
}

// Await blocks until the trade reaches a terminal status or ctx is done.
// onUpdate, when non-nil, observes every successfully fetched status.
// Transient fetch errors are logged and polling continues.
func (p *StatusPoller) Await(ctx context.Context, tradeHash string, onUpdate func(*zrx.TradeStatusResponse)) (*zrx.TradeStatusResponse, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		metrics.GaslessPolls.Inc()
		status, err := p.api.TradeStatus(ctx, tradeHash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("gasless status poll failed", "trade_hash", tradeHash, "error", err)
		} else {
			if onUpdate != nil {
				onUpdate(status)
			}
			if status.Status.Terminal() {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TradeState is the derived view of one tracked gasless trade.
type TradeState struct {
	TradeHash       string                 `json:"trade_hash"`
	Status          zrx.TradeStatus        `json:"status"`
	IsLoadingStatus bool                   `json:"is_loading_status"`
	SuccessTx       *zrx.StatusTransaction `json:"success_tx,omitempty"`
	ConfirmedTx     *zrx.StatusTransaction `json:"confirmed_tx,omitempty"`
	ReasonFailed    string                 `json:"reason_failed,omitempty"`
}

// DeriveTradeState computes the booleans the UI layer keys off a raw status
// response. A cleared trade hash yields the zero state.
func DeriveTradeState(tradeHash string, st *zrx.TradeStatusResponse) TradeState {
	state := TradeState{TradeHash: tradeHash}
	if tradeHash == "" || st == nil {
		return state
	}

	state.Status = st.Status
	state.IsLoadingStatus = !st.Status.Terminal()

	if len(st.Transactions) > 0 {
		first := st.Transactions[0]
		switch st.Status {
		case zrx.StatusSucceeded:
			state.SuccessTx = &first
		case zrx.StatusConfirmed:
			state.ConfirmedTx = &first
		}
	}
	if st.Status == zrx.StatusFailed {
		state.ReasonFailed = st.Reason
	}
	return state
}
