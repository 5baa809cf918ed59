package trading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bitex_go/internal/domain"
	"bitex_go/internal/infra"
	"bitex_go/internal/report"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pipeline carries a validated order from an authenticated session into
// storage and the matching engine. The invariant it guards: an order never
// reaches the matcher before it has a durable ID.
type Pipeline struct {
	log     *slog.Logger
	store   domain.Store
	matcher domain.Matcher
	router  *report.Router
	symbols map[string]bool
}

// NewPipeline creates an order submission pipeline. symbols lists the
// tradable markets; an empty list accepts any symbol.
func NewPipeline(store domain.Store, matcher domain.Matcher, router *report.Router, symbols []string, log *slog.Logger) *Pipeline {
	listed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		listed[s] = true
	}
	return &Pipeline{
		log:     log,
		store:   store,
		matcher: matcher,
		router:  router,
		symbols: listed,
	}
}

// Submit validates, persists, and matches the order. Errors are business
// errors; the caller translates them into a protocol reject.
func (p *Pipeline) Submit(ctx context.Context, o *domain.Order) error {
	if err := p.validate(o); err != nil {
		return err
	}

	if err := p.store.CreateOrder(ctx, o); err != nil {
		return fmt.Errorf("persist order: %w", err)
	}
	infra.GlobalMetrics.RecordOrderSubmitted()

	if err := p.matcher.Match(ctx, o); err != nil {
		// The order exists in storage without a matching outcome. Bound the
		// inconsistency window before surfacing the failure.
		p.reconcile(ctx, o, err)
		return fmt.Errorf("match order %d: %w", o.ID, err)
	}
	return nil
}

func (p *Pipeline) validate(o *domain.Order) error {
	switch {
	case o.ClientOrderID == "":
		return fmt.Errorf("%w: missing ClOrdID", domain.ErrInvalidOrder)
	case o.Symbol == "":
		return fmt.Errorf("%w: missing Symbol", domain.ErrInvalidOrder)
	case o.Side != domain.SideBuy && o.Side != domain.SideSell:
		return fmt.Errorf("%w: bad Side %q", domain.ErrInvalidOrder, o.Side)
	case o.Type != domain.OrderTypeMarket && o.Type != domain.OrderTypeLimit:
		return fmt.Errorf("%w: bad OrdType %q", domain.ErrInvalidOrder, o.Type)
	case !o.Qty.IsPositive():
		return fmt.Errorf("%w: OrderQty must be positive", domain.ErrInvalidOrder)
	case o.Type == domain.OrderTypeLimit && !o.Price.IsPositive():
		return fmt.Errorf("%w: limit order needs a positive Price", domain.ErrInvalidOrder)
	}

	if len(p.symbols) > 0 && !p.symbols[o.Symbol] {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, o.Symbol)
	}
	return nil
}

// reconcile marks an unmatched order rejected and tells the account. Orders
// that already took fills keep their state; those need operator review, not
// an automated rewind.
func (p *Pipeline) reconcile(ctx context.Context, o *domain.Order, cause error) {
	if !o.CumQty.IsZero() {
		p.log.Error("order partially matched before engine failure; manual reconciliation required",
			slog.Uint64("order_id", uint64(o.ID)), slog.Any("error", cause))
		return
	}

	o.Status = domain.OrderStatusRejected
	o.LeavesQty = decimal.Zero
	if err := p.store.UpdateOrder(ctx, o); err != nil {
		p.log.Error("failed to mark order rejected",
			slog.Uint64("order_id", uint64(o.ID)), slog.Any("error", err))
	}

	p.router.Publish(o.AccountID, &domain.ExecutionReport{
		MsgType:       "8",
		ExecID:        uuid.NewString(),
		ExecType:      domain.ExecTypeRejected,
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		AccountID:     o.AccountID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		OrdStatus:     o.Status,
		LeavesQty:     o.LeavesQty,
		CumQty:        o.CumQty,
		TransactTime:  time.Now().UTC(),
		Text:          cause.Error(),
	})
}
