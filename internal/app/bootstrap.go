// Package app wires the gateway together at startup.
package app

import (
	"log/slog"

	"bitex_go/internal/infra"
	"bitex_go/internal/infra/chain"
	"bitex_go/internal/infra/storage"
	"bitex_go/internal/marketdata"
	"bitex_go/internal/report"
	"bitex_go/internal/server"
	"bitex_go/internal/session"
	"bitex_go/internal/trading"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config *infra.Config
	Store  *storage.Store
	Bus    *marketdata.Bus
	Board  *marketdata.Board
	Router *report.Router
	Engine *trading.Engine
	Server *server.Server
	Poller *chain.Poller
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize builds every gateway component in dependency order.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping gateway...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Storage (DB)
	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Database.Path))

	// 4. Market-data fan-out and last-value board
	b.Bus = marketdata.NewBus()
	b.Board = marketdata.NewBoard()
	for _, symbol := range cfg.Markets.Symbols {
		for _, entryType := range []string{"0", "1", "2"} {
			b.Bus.Subscribe(symbol, entryType, b.Board.Update)
		}
	}

	// 5. Report routing, matching, order pipeline
	b.Router = report.NewRouter()
	b.Engine = trading.NewEngine(store, b.Router, b.Bus, logger)
	pipeline := trading.NewPipeline(store, b.Engine, b.Router, cfg.Markets.Symbols, logger)

	// 6. Websocket gateway
	b.Server = server.New(session.Deps{
		Log:      logger,
		Store:    store,
		Pipeline: pipeline,
		Router:   b.Router,
		Bus:      b.Bus,
		Board:    b.Board,
	}, logger)

	// 7. Chain deposit poller (idle without an RPC URL)
	b.Poller = chain.NewPoller(cfg.Chain.RPCURL, cfg.Chain.PollIntervalSec, func(d chain.Deposit) {
		slog.Info("💰 Deposit confirmed",
			slog.String("txid", d.TxID),
			slog.String("address", d.Address),
			slog.String("amount", d.Amount.String()))
	})

	slog.Info("✅ Gateway components ready",
		slog.Int("markets", len(cfg.Markets.Symbols)),
		slog.Bool("tls", cfg.TLSEnabled()))
	return nil
}
