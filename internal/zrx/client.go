package zrx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/pkg/metrics"
)

const (
	priceEndpoint            = "/price"
	quoteEndpoint            = "/quote"
	gaslessPriceEndpoint     = "/gasless/price"
	gaslessQuoteEndpoint     = "/gasless/quote"
	gaslessSubmitEndpoint    = "/gasless/submit"
	gaslessStatusEndpoint    = "/gasless/status"
	gaslessSupportedEndpoint = "/gasless/supported"
)

// Client is a stateless, read-mostly HTTP client for the swap/relayer API.
// All calls honor context cancellation: a superseded quote request must be
// aborted, never acted upon.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

func NewClient(cfg config.ZeroXConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Price fetches an indicative price for the pair. The gasless flag selects
// the endpoint variant; it must hold the eligibility resolver's verdict.
func (c *Client) Price(ctx context.Context, req *QuoteRequest, gasless bool) (*Quote, error) {
	endpoint := priceEndpoint
	if gasless {
		endpoint = gaslessPriceEndpoint
	}
	return c.fetchQuote(ctx, endpoint, req, gasless)
}

// Quote fetches a firm, executable quote carrying either transaction calldata
// (standard) or trade/approval EIP-712 payloads (gasless).
func (c *Client) Quote(ctx context.Context, req *QuoteRequest, gasless bool) (*Quote, error) {
	endpoint := quoteEndpoint
	if gasless {
		endpoint = gaslessQuoteEndpoint
	}
	return c.fetchQuote(ctx, endpoint, req, gasless)
}

func (c *Client) fetchQuote(ctx context.Context, endpoint string, req *QuoteRequest, gasless bool) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error())
	}

	var quote Quote
	if err := c.get(ctx, endpoint+"?"+req.values().Encode(), &quote); err != nil {
		metrics.QuotesTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}

	// A quote without liquidity is a hard error, never a retry condition.
	if !quote.LiquidityAvailable {
		metrics.QuotesTotal.WithLabelValues(endpoint, "no_liquidity").Inc()
		return nil, apperrors.NewLiquidityUnavailable()
	}
	metrics.QuotesTotal.WithLabelValues(endpoint, "ok").Inc()

	if gasless {
		quote.Kind = QuoteGasless
	} else {
		quote.Kind = QuoteStandard
	}
	return &quote, nil
}

// SubmitGasless sends the signed trade (and optional approval) to the relayer
// and returns the trade hash used as the polling key.
func (c *Client) SubmitGasless(ctx context.Context, sub *GaslessSubmission) (*SubmitResponse, error) {
	if sub == nil || sub.Trade == nil {
		return nil, apperrors.NewInvalidRequest("signed trade payload is required")
	}
	var resp SubmitResponse
	if err := c.post(ctx, gaslessSubmitEndpoint, sub, &resp); err != nil {
		return nil, err
	}
	if resp.TradeHash == "" {
		return nil, apperrors.New(apperrors.ErrSubmissionFailed, "relayer returned no trade hash", nil)
	}
	return &resp, nil
}

// TradeStatus looks up the settlement status for a submitted gasless trade.
func (c *Client) TradeStatus(ctx context.Context, tradeHash string) (*TradeStatusResponse, error) {
	var resp TradeStatusResponse
	if err := c.get(ctx, gaslessStatusEndpoint+"/"+tradeHash, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GaslessSupported enumerates chains (and per-chain token lists) eligible for
// gasless execution.
func (c *Client) GaslessSupported(ctx context.Context, chainID int64) (*SupportedResponse, error) {
	var resp SupportedResponse
	path := gaslessSupportedEndpoint + "?chainId=" + strconv.FormatInt(chainID, 10)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.Wrap(err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return apperrors.Wrap(err)
	}
	if c.apiKey != "" {
		req.Header.Set("0x-api-key", c.apiKey)
	}
	req.Header.Set("0x-version", "v2")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.New(apperrors.ErrUpstream, "swap api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("swap api returned %d: %s", resp.StatusCode, string(snippet)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.New(apperrors.ErrUpstream, "failed to decode swap api response", err)
	}
	return nil
}
