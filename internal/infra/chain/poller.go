// Package chain polls an external-chain node for incoming deposits.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bitex_go/internal/infra"

	"github.com/shopspring/decimal"
)

// Deposit is one confirmed inbound transfer seen on the chain.
type Deposit struct {
	TxID    string
	Address string
	Amount  decimal.Decimal
}

// rpcRequest is the JSON-RPC envelope the node expects.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcTransaction is one entry of a listtransactions result.
type rpcTransaction struct {
	TxID          string  `json:"txid"`
	Address       string  `json:"address"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Confirmations int     `json:"confirmations"`
}

// Poller periodically asks the chain node for recent transactions and
// reports fresh deposits.
type Poller struct {
	onDeposit    func(Deposit)
	rpcURL       string
	pollInterval time.Duration
	httpClient   *http.Client
	seen         map[string]bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewPoller creates a deposit poller. A zero interval defaults to 5 seconds.
func NewPoller(rpcURL string, pollIntervalSec int, onDeposit func(Deposit)) *Poller {
	interval := 5 * time.Second
	if pollIntervalSec > 0 {
		interval = time.Duration(pollIntervalSec) * time.Second
	}
	return &Poller{
		onDeposit:    onDeposit,
		rpcURL:       rpcURL,
		pollInterval: interval,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		seen:         make(map[string]bool),
	}
}

// Start begins polling. A poller without an RPC URL stays idle.
func (p *Poller) Start(ctx context.Context) error {
	if p.rpcURL == "" {
		slog.Info("Deposit poller disabled (no chain RPC URL)")
		return nil
	}

	ctx, p.cancel = context.WithCancel(ctx)

	if err := p.poll(ctx); err != nil {
		slog.Warn("Initial deposit poll failed", slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	retryCount := 0
	for {
		delay := p.pollInterval
		if retryCount > 0 {
			delay = infra.CalculateBackoff(retryCount)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := p.poll(ctx); err != nil {
			slog.Warn("Deposit poll failed", slog.Any("error", err), slog.Int("retry", retryCount))
			retryCount++
			continue
		}
		retryCount = 0
	}
}

func (p *Poller) poll(ctx context.Context) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      "bitex",
		Method:  "listtransactions",
		Params:  []any{"*", 50},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.rpcURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chain rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chain rpc status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var rpcResp struct {
		Result []rpcTransaction `json:"result"`
	}
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode chain rpc response: %w", err)
	}

	for _, tx := range rpcResp.Result {
		if tx.Category != "receive" || tx.Confirmations < 1 || p.seen[tx.TxID] {
			continue
		}
		p.seen[tx.TxID] = true
		if p.onDeposit != nil {
			p.onDeposit(Deposit{
				TxID:    tx.TxID,
				Address: tx.Address,
				Amount:  decimal.NewFromFloat(tx.Amount),
			})
		}
	}
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
