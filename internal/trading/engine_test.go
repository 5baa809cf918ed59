package trading

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"bitex_go/internal/domain"
	"bitex_go/internal/marketdata"
	"bitex_go/internal/report"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory domain.Store for engine and pipeline tests.
type fakeStore struct {
	mu              sync.Mutex
	nextID          uint
	orders          map[uint]*domain.Order
	failCreateOrder bool
	failUpdateOrder bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[uint]*domain.Order)}
}

func (f *fakeStore) Authenticate(context.Context, string, string) (*domain.User, error) {
	return nil, domain.ErrBadCredentials
}

func (f *fakeStore) CreateUser(context.Context, *domain.User, string) error {
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateOrder {
		return errors.New("disk full")
	}
	f.nextID++
	o.ID = f.nextID
	o.Status = domain.OrderStatusNew
	o.LeavesQty = o.Qty
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateOrder(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateOrder {
		return errors.New("disk full")
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func limitOrder(account, clOrdID, side, px, qty string) *domain.Order {
	return &domain.Order{
		AccountID:     account,
		ClientOrderID: clOrdID,
		Symbol:        "BTCUSD",
		Side:          side,
		Type:          domain.OrderTypeLimit,
		Price:         decimal.RequireFromString(px),
		Qty:           decimal.RequireFromString(qty),
	}
}

func submitTestOrder(t *testing.T, e *Engine, store *fakeStore, o *domain.Order) {
	t.Helper()
	if err := store.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if err := e.Match(context.Background(), o); err != nil {
		t.Fatalf("Match failed: %v", err)
	}
}

func TestEngine_LimitCross(t *testing.T) {
	store := newFakeStore()
	router := report.NewRouter()
	bus := marketdata.NewBus()
	engine := NewEngine(store, router, bus, slog.Default())

	var buyerReports, sellerReports []*domain.ExecutionReport
	router.Register("buyer", func(r *domain.ExecutionReport) { buyerReports = append(buyerReports, r) })
	router.Register("seller", func(r *domain.ExecutionReport) { sellerReports = append(sellerReports, r) })

	var trades []domain.Tick
	bus.Subscribe("BTCUSD", domain.EntryTypeTrade, func(tk domain.Tick) { trades = append(trades, tk) })

	submitTestOrder(t, engine, store, limitOrder("buyer", "b1", domain.SideBuy, "50000", "1"))
	submitTestOrder(t, engine, store, limitOrder("seller", "s1", domain.SideSell, "50000", "0.4"))

	t.Run("seller fills completely", func(t *testing.T) {
		last := sellerReports[len(sellerReports)-1]
		if last.OrdStatus != domain.OrderStatusFilled {
			t.Errorf("seller OrdStatus = %q", last.OrdStatus)
		}
		if !last.CumQty.Equal(decimal.RequireFromString("0.4")) {
			t.Errorf("seller CumQty = %s", last.CumQty)
		}
	})

	t.Run("buyer partially fills at resting price", func(t *testing.T) {
		last := buyerReports[len(buyerReports)-1]
		if last.OrdStatus != domain.OrderStatusPartiallyFilled {
			t.Errorf("buyer OrdStatus = %q", last.OrdStatus)
		}
		if !last.LastPx.Equal(decimal.RequireFromString("50000")) {
			t.Errorf("buyer LastPx = %s", last.LastPx)
		}
		if !last.LeavesQty.Equal(decimal.RequireFromString("0.6")) {
			t.Errorf("buyer LeavesQty = %s", last.LeavesQty)
		}
	})

	t.Run("report sequence starts with the order ack", func(t *testing.T) {
		if buyerReports[0].ExecType != domain.ExecTypeNew {
			t.Errorf("first buyer report ExecType = %q", buyerReports[0].ExecType)
		}
	})

	t.Run("trade tick published", func(t *testing.T) {
		if len(trades) != 1 {
			t.Fatalf("trade ticks = %d, want 1", len(trades))
		}
		if !trades[0].Qty.Equal(decimal.RequireFromString("0.4")) {
			t.Errorf("trade qty = %s", trades[0].Qty)
		}
	})

	t.Run("remainder rests on the book", func(t *testing.T) {
		bids, asks := engine.Depth("BTCUSD")
		if bids != 1 || asks != 0 {
			t.Errorf("depth = (%d, %d), want (1, 0)", bids, asks)
		}
	})
}

func TestEngine_PriceTimePriority(t *testing.T) {
	store := newFakeStore()
	router := report.NewRouter()
	engine := NewEngine(store, router, nil, slog.Default())

	var fills []string
	for _, acct := range []string{"early", "late"} {
		acct := acct
		router.Register(acct, func(r *domain.ExecutionReport) {
			if r.ExecType == domain.ExecTypeTrade {
				fills = append(fills, acct)
			}
		})
	}

	submitTestOrder(t, engine, store, limitOrder("early", "b1", domain.SideBuy, "50000", "1"))
	submitTestOrder(t, engine, store, limitOrder("late", "b2", domain.SideBuy, "50000", "1"))
	submitTestOrder(t, engine, store, limitOrder("seller", "s1", domain.SideSell, "50000", "1"))

	if len(fills) == 0 || fills[0] != "early" {
		t.Errorf("fill order = %v, want the earlier bid first", fills)
	}
}

func TestEngine_BetterPricedBidWins(t *testing.T) {
	store := newFakeStore()
	router := report.NewRouter()
	engine := NewEngine(store, router, nil, slog.Default())

	var winner string
	router.Register("low", func(r *domain.ExecutionReport) {
		if r.ExecType == domain.ExecTypeTrade && winner == "" {
			winner = "low"
		}
	})
	router.Register("high", func(r *domain.ExecutionReport) {
		if r.ExecType == domain.ExecTypeTrade && winner == "" {
			winner = "high"
		}
	})

	submitTestOrder(t, engine, store, limitOrder("low", "b1", domain.SideBuy, "49000", "1"))
	submitTestOrder(t, engine, store, limitOrder("high", "b2", domain.SideBuy, "50000", "1"))
	submitTestOrder(t, engine, store, limitOrder("seller", "s1", domain.SideSell, "49000", "1"))

	if winner != "high" {
		t.Errorf("winner = %q, want the better-priced bid", winner)
	}
}

func TestEngine_MarketOrderRemainderCanceled(t *testing.T) {
	store := newFakeStore()
	router := report.NewRouter()
	engine := NewEngine(store, router, nil, slog.Default())

	var last *domain.ExecutionReport
	router.Register("acct", func(r *domain.ExecutionReport) { last = r })

	o := &domain.Order{
		AccountID:     "acct",
		ClientOrderID: "m1",
		Symbol:        "BTCUSD",
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Qty:           decimal.RequireFromString("1"),
	}
	submitTestOrder(t, engine, store, o)

	if last == nil || last.OrdStatus != domain.OrderStatusCanceled {
		t.Fatalf("last report = %+v, want canceled", last)
	}
	if o.LeavesQty.IsPositive() {
		t.Errorf("LeavesQty = %s, want 0", o.LeavesQty)
	}
}

func TestEngine_NonCrossingLimitsRest(t *testing.T) {
	store := newFakeStore()
	router := report.NewRouter()
	engine := NewEngine(store, router, nil, slog.Default())

	submitTestOrder(t, engine, store, limitOrder("a", "b1", domain.SideBuy, "49000", "1"))
	submitTestOrder(t, engine, store, limitOrder("b", "s1", domain.SideSell, "51000", "1"))

	bids, asks := engine.Depth("BTCUSD")
	if bids != 1 || asks != 1 {
		t.Errorf("depth = (%d, %d), want (1, 1)", bids, asks)
	}
}

func TestPipeline_Submit(t *testing.T) {
	newPipeline := func(store *fakeStore, m domain.Matcher) *Pipeline {
		return NewPipeline(store, m, report.NewRouter(), []string{"BTCUSD"}, slog.Default())
	}

	t.Run("rejects invalid orders before persisting", func(t *testing.T) {
		store := newFakeStore()
		p := newPipeline(store, NewEngine(store, report.NewRouter(), nil, slog.Default()))

		bad := limitOrder("acct", "c1", domain.SideBuy, "0", "1") // limit without price
		err := p.Submit(context.Background(), bad)
		if !errors.Is(err, domain.ErrInvalidOrder) {
			t.Errorf("expected ErrInvalidOrder, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("invalid order must not be persisted")
		}
	})

	t.Run("rejects unlisted symbols", func(t *testing.T) {
		store := newFakeStore()
		p := newPipeline(store, NewEngine(store, report.NewRouter(), nil, slog.Default()))

		o := limitOrder("acct", "c1", domain.SideBuy, "100", "1")
		o.Symbol = "DOGEUSD"
		if err := p.Submit(context.Background(), o); !errors.Is(err, domain.ErrUnknownSymbol) {
			t.Errorf("expected ErrUnknownSymbol, got %v", err)
		}
	})

	t.Run("persistence failure stops the pipeline", func(t *testing.T) {
		store := newFakeStore()
		store.failCreateOrder = true
		matched := false
		p := newPipeline(store, matcherFunc(func(context.Context, *domain.Order) error {
			matched = true
			return nil
		}))

		err := p.Submit(context.Background(), limitOrder("acct", "c1", domain.SideBuy, "100", "1"))
		if err == nil {
			t.Fatal("expected error")
		}
		if matched {
			t.Error("matcher must not see an unpersisted order")
		}
	})

	t.Run("matcher failure marks the order rejected", func(t *testing.T) {
		store := newFakeStore()
		router := report.NewRouter()
		var rejected *domain.ExecutionReport
		router.Register("acct", func(r *domain.ExecutionReport) { rejected = r })

		p := NewPipeline(store, matcherFunc(func(context.Context, *domain.Order) error {
			return errors.New("engine down")
		}), router, []string{"BTCUSD"}, slog.Default())

		o := limitOrder("acct", "c1", domain.SideBuy, "100", "1")
		if err := p.Submit(context.Background(), o); err == nil {
			t.Fatal("expected error")
		}
		if o.Status != domain.OrderStatusRejected {
			t.Errorf("Status = %q, want rejected", o.Status)
		}
		if rejected == nil || rejected.ExecType != domain.ExecTypeRejected {
			t.Errorf("reject report = %+v", rejected)
		}
	})

	t.Run("orders get a durable id before matching", func(t *testing.T) {
		store := newFakeStore()
		var seenID uint
		p := newPipeline(store, matcherFunc(func(_ context.Context, o *domain.Order) error {
			seenID = o.ID
			return nil
		}))

		if err := p.Submit(context.Background(), limitOrder("acct", "c1", domain.SideBuy, "100", "1")); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if seenID == 0 {
			t.Error("matcher saw an order without a durable ID")
		}
	})
}

// matcherFunc adapts a function to domain.Matcher.
type matcherFunc func(context.Context, *domain.Order) error

func (f matcherFunc) Match(ctx context.Context, o *domain.Order) error {
	return f(ctx, o)
}
