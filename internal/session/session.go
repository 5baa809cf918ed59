// Package session implements the per-connection protocol state machine and
// its subscription bookkeeping.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"bitex_go/internal/domain"
	"bitex_go/internal/infra"
	"bitex_go/internal/marketdata"
	"bitex_go/internal/message"
	"bitex_go/internal/report"
	"bitex_go/internal/trading"
)

// Transport is the connection-facing side of a session. Send queues a frame
// for reliable in-order delivery and fails when the connection can no
// longer accept it; TrySend queues best-effort and reports acceptance.
// Implementations must be safe for calls from bus and router callbacks.
type Transport interface {
	Send(frame []byte) error
	TrySend(frame []byte) bool
	Close()
}

// Deps bundles the shared collaborators every session talks to. Board is
// optional; without it subscribers get updates only, no opening snapshot.
type Deps struct {
	Log      *slog.Logger
	Store    domain.Store
	Pipeline *trading.Pipeline
	Router   *report.Router
	Bus      domain.MarketBus
	Board    *marketdata.Board
}

// Session owns one connection's protocol state. It moves from
// unauthenticated to authenticated exactly once and releases everything it
// acquired at teardown. Dispatch runs on the connection's read goroutine,
// one message at a time; only the outbound path is touched concurrently.
type Session struct {
	deps      Deps
	transport Transport
	registry  *Registry

	authenticated bool
	user          *domain.User
	listenerID    uint64
	hasListener   bool

	teardownOnce sync.Once
}

// New creates a session in the unauthenticated state.
func New(deps Deps, transport Transport) *Session {
	return &Session{
		deps:      deps,
		transport: transport,
		registry:  NewRegistry(deps.Bus),
	}
}

// Authenticated reports whether the session has completed a logon.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// Registry exposes the subscription registry (external read, tests).
func (s *Session) Registry() *Registry {
	return s.registry
}

// HandleMessage decodes and dispatches one inbound frame. A non-nil error
// means the connection must close; any response owed to the peer has
// already been sent.
func (s *Session) HandleMessage(ctx context.Context, raw []byte) error {
	infra.GlobalMetrics.RecordMessage()

	msg, err := message.Parse(raw)
	if err != nil {
		// Fails closed: no response for malformed input
		infra.GlobalMetrics.RecordError()
		return domain.NewProtocolError("decode", err)
	}
	return s.dispatch(ctx, msg)
}

func (s *Session) dispatch(ctx context.Context, msg *message.Message) error {
	// Heartbeats and market data are public; they bypass the auth gate.
	switch msg.Kind() {
	case message.KindTestRequest:
		return s.handleTestRequest(msg)
	case message.KindMarketDataRequest:
		return s.handleMarketDataRequest(msg)
	}

	if !s.authenticated {
		switch msg.Kind() {
		case message.KindSignup:
			return s.handleSignup(ctx, msg)
		case message.KindLogon:
			return s.handleLogon(ctx, msg)
		default:
			infra.GlobalMetrics.RecordError()
			return domain.NewProtocolError("dispatch",
				fmt.Errorf("%w: %s before logon", domain.ErrNotAuthenticated, msg.Kind()))
		}
	}

	switch msg.Kind() {
	case message.KindNewOrderSingle:
		return s.handleNewOrder(ctx, msg)
	default:
		s.deps.Log.Warn("Ignoring unexpected message", slog.String("kind", string(msg.Kind())))
		return nil
	}
}

func (s *Session) handleTestRequest(msg *message.Message) error {
	return s.sendJSON(map[string]string{
		"MsgType":   string(message.KindHeartbeat),
		"TestReqID": msg.Get("TestReqID"),
	})
}

func (s *Session) handleMarketDataRequest(msg *message.Message) error {
	if err := msg.Require("MDReqID", "SubscriptionRequestType"); err != nil {
		return domain.NewProtocolError("market-data", err)
	}
	reqID := msg.Get("MDReqID")
	subType, ok := msg.GetInt("SubscriptionRequestType")
	if !ok {
		return domain.NewProtocolError("market-data",
			fmt.Errorf("%w: bad SubscriptionRequestType", domain.ErrMalformedMessage))
	}

	switch subType {
	case message.SubTypeUnsubscribe:
		s.registry.Unsubscribe(reqID)
	case message.SubTypeSubscribe:
		depth, _ := msg.GetInt("MarketDepth")
		instruments := msg.GetStrings("Instruments")
		entryTypes := msg.GetStrings("MDEntryTypes")
		s.registry.Subscribe(reqID, depth, instruments, entryTypes, s.onTick)

		// Snapshot before updates
		if s.deps.Board != nil {
			for _, instrument := range instruments {
				for _, t := range s.deps.Board.Snapshot(instrument, entryTypes) {
					s.onTick(t)
				}
			}
		}
	default:
		s.deps.Log.Warn("Unknown subscription request type",
			slog.String("req_id", reqID), slog.Int("type", subType))
	}
	return nil
}

func (s *Session) handleSignup(ctx context.Context, msg *message.Message) error {
	if err := msg.Require("Username", "Password"); err != nil {
		return domain.NewProtocolError("signup", err)
	}

	u := &domain.User{
		Username:  msg.Get("Username"),
		FirstName: msg.Get("FirstName"),
		LastName:  msg.Get("LastName"),
		Email:     msg.Get("Email"),
	}
	if err := s.deps.Store.CreateUser(ctx, u, msg.Get("Password")); err != nil {
		infra.GlobalMetrics.RecordError()
		s.deps.Log.Warn("Signup failed",
			slog.String("username", u.Username), slog.Any("error", err))
		return s.sendReject(msg.Kind(), err)
	}

	s.deps.Log.Info("User created",
		slog.String("username", u.Username), slog.String("account_id", u.AccountID))
	// Signup does not authenticate the connection; a logon must follow.
	return nil
}

func (s *Session) handleLogon(ctx context.Context, msg *message.Message) error {
	if err := msg.Require("Username", "Password"); err != nil {
		return domain.NewProtocolError("logon", err)
	}
	username := msg.Get("Username")

	user, err := s.deps.Store.Authenticate(ctx, username, msg.Get("Password"))
	if err != nil {
		infra.GlobalMetrics.RecordError()
		// The rejection echoes the requested username; no user record is
		// consulted on this path.
		sendErr := s.sendJSON(map[string]any{
			"MsgType":    string(message.KindLogonResponse),
			"Username":   username,
			"UserStatus": message.UserStatusNotLoggedIn,
		})
		if sendErr != nil {
			s.deps.Log.Warn("Failed to send logon rejection", slog.Any("error", sendErr))
		}
		return fmt.Errorf("logon %s: %w", username, err)
	}

	s.authenticated = true
	s.user = user

	if err := s.sendJSON(map[string]any{
		"MsgType":    string(message.KindLogonResponse),
		"Username":   user.Username,
		"UserStatus": message.UserStatusLoggedIn,
	}); err != nil {
		return err
	}

	// Every connection gets a fresh listener; the previous connection's
	// listener died with its own teardown.
	s.listenerID = s.deps.Router.Register(user.AccountID, s.onReport)
	s.hasListener = true

	s.deps.Log.Info("Session authenticated",
		slog.String("username", user.Username), slog.String("account_id", user.AccountID))
	return nil
}

func (s *Session) handleNewOrder(ctx context.Context, msg *message.Message) error {
	o := &domain.Order{
		UserID:        s.user.ID,
		AccountID:     s.user.AccountID, // Never the client-supplied value
		ClientOrderID: msg.Get("ClOrdID"),
		Symbol:        msg.Get("Symbol"),
		Side:          msg.Get("Side"),
		Type:          msg.Get("OrdType"),
	}

	var parseErr error
	o.Qty, parseErr = msg.GetDecimal("OrderQty")
	if parseErr == nil && msg.Has("Price") {
		o.Price, parseErr = msg.GetDecimal("Price")
	}
	if parseErr != nil {
		infra.GlobalMetrics.RecordError()
		return s.sendReject(msg.Kind(), parseErr)
	}

	if err := s.deps.Pipeline.Submit(ctx, o); err != nil {
		infra.GlobalMetrics.RecordError()
		s.deps.Log.Warn("Order rejected",
			slog.String("cl_ord_id", o.ClientOrderID), slog.Any("error", err))
		return s.sendReject(msg.Kind(), err)
	}
	// No direct response; execution reports follow through the router.
	return nil
}

// onReport delivers an execution report to this connection. Runs on the
// publisher's goroutine.
func (s *Session) onReport(rpt *domain.ExecutionReport) {
	frame, err := json.Marshal(rpt)
	if err != nil {
		s.deps.Log.Error("Failed to marshal execution report", slog.Any("error", err))
		return
	}
	if err := s.transport.Send(frame); err != nil {
		s.deps.Log.Warn("Dropping connection behind on execution reports", slog.Any("error", err))
		return
	}
	infra.GlobalMetrics.RecordReportDelivered()
}

// onTick delivers a market-data tick. Best effort: slow consumers lose
// ticks, not the connection.
func (s *Session) onTick(t domain.Tick) {
	frame, err := json.Marshal(t)
	if err != nil {
		s.deps.Log.Error("Failed to marshal tick", slog.Any("error", err))
		return
	}
	if !s.transport.TrySend(frame) {
		infra.GlobalMetrics.RecordMarketDataDrop()
	}
}

// Teardown releases every subscription and listener the session acquired.
// Runs exactly once, on every exit path, whether or not the session ever
// authenticated.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		s.registry.ReleaseAll()
		if s.hasListener {
			s.deps.Router.Unregister(s.listenerID)
			s.hasListener = false
		}
	})
}

func (s *Session) sendJSON(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.transport.Send(frame)
}

// sendReject translates a business error into a protocol reject. The
// connection stays open.
func (s *Session) sendReject(ref message.Kind, cause error) error {
	// Internal failures are not leaked verbatim
	text := "request failed"
	if domain.IsRejectable(cause) {
		text = cause.Error()
	}
	return s.sendJSON(map[string]string{
		"MsgType":    string(message.KindReject),
		"RefMsgType": string(ref),
		"Text":       text,
	})
}
