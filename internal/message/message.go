// Package message implements the FIX-like JSON wire codec. A message is a
// flat JSON object discriminated by its MsgType field.
package message

import (
	"encoding/json"
	"fmt"
	"strconv"

	"bitex_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Kind discriminates inbound and outbound message types. Values follow the
// FIX MsgType convention.
type Kind string

const (
	KindHeartbeat         Kind = "0"
	KindTestRequest       Kind = "1"
	KindReject            Kind = "3"
	KindExecutionReport   Kind = "8"
	KindMarketData        Kind = "W"
	KindMarketDataRequest Kind = "V"
	KindLogon             Kind = "BE"
	KindLogonResponse     Kind = "BF"
	KindNewOrderSingle    Kind = "D"
	KindSignup            Kind = "U0"
)

// SubscriptionRequestType values for market-data requests.
const (
	SubTypeSubscribe   = 1
	SubTypeUnsubscribe = 2
)

// UserStatus values for logon responses.
const (
	UserStatusLoggedIn    = 1
	UserStatusNotLoggedIn = 3
)

// Message is a decoded, validated wire message.
type Message struct {
	kind   Kind
	fields map[string]any
}

// Parse decodes raw bytes into a Message. It fails on anything that is not
// a JSON object carrying a non-empty string MsgType.
func Parse(raw []byte) (*Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	mt, ok := fields["MsgType"].(string)
	if !ok || mt == "" {
		return nil, fmt.Errorf("%w: missing MsgType", domain.ErrMalformedMessage)
	}

	return &Message{kind: Kind(mt), fields: fields}, nil
}

// Kind returns the message-type discriminator.
func (m *Message) Kind() Kind {
	return m.kind
}

// Has reports whether the field is present.
func (m *Message) Has(field string) bool {
	_, ok := m.fields[field]
	return ok
}

// Get returns the field as a string. JSON numbers are formatted; missing or
// non-scalar fields return "".
func (m *Message) Get(field string) string {
	switch v := m.fields[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// GetInt returns the field as an int. Accepts JSON numbers and numeric
// strings; clients encode integer tags both ways.
func (m *Message) GetInt(field string) (int, bool) {
	switch v := m.fields[field].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// GetStrings returns the field as a list of strings. A scalar string is
// treated as a single-element list.
func (m *Message) GetStrings(field string) []string {
	switch v := m.fields[field].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetDecimal returns the field as a decimal. Accepts JSON numbers and
// numeric strings.
func (m *Message) GetDecimal(field string) (decimal.Decimal, error) {
	s := m.Get(field)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: missing %s", domain.ErrMalformedMessage, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad %s: %v", domain.ErrMalformedMessage, field, err)
	}
	return d, nil
}

// Require fails if any of the named fields is absent or empty.
func (m *Message) Require(fields ...string) error {
	for _, f := range fields {
		if m.Get(f) == "" && !m.Has(f) {
			return fmt.Errorf("%w: missing %s", domain.ErrMalformedMessage, f)
		}
	}
	return nil
}
