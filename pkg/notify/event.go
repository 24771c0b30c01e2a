// Package notify maintains the terminal's push channel to the gateway and
// delivers order lifecycle events to registered listeners, scoped to the
// principal's branch visibility.
package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the logical event type after normalization.
type Kind int

const (
	KindNew Kind = iota
	KindUpdated
)

func (k Kind) String() string {
	if k == KindUpdated {
		return "updated"
	}
	return "new"
}

// eventKinds maps every transport-level event name — including the legacy
// spellings older gateway versions still emit — to one logical kind. New
// legacy names only need a row here; delivery logic never changes.
var eventKinds = map[string]Kind{
	"new-order":     KindNew,
	"newOrder":      KindNew,
	"order:new":     KindNew,
	"new_order":     KindNew,
	"order-created": KindNew,

	"order-updated": KindUpdated,
	"orderUpdated":  KindUpdated,
	"order:updated": KindUpdated,
	"order_updated": KindUpdated,
}

// KnownEvent reports whether name maps to a logical kind.
func KnownEvent(name string) (Kind, bool) {
	k, ok := eventKinds[name]
	return k, ok
}

// OrderEvent is a normalized order notification. Branch is the canonical
// branch ID used for visibility filtering.
type OrderEvent struct {
	Kind        Kind
	OrderID     string
	OrderNumber string
	Status      string
	Branch      string
	ActorRole   string
	Timestamp   time.Time
}

// wirePayload tolerates both the flat and the nested payload shapes the
// backend has shipped over time.
type wirePayload struct {
	OrderID     string       `json:"orderId"`
	OrderNumber string       `json:"orderNumber"`
	Status      string       `json:"status"`
	Branch      string       `json:"branch"`
	BranchID    string       `json:"branchId"`
	ActorRole   string       `json:"updatedByRole"`
	Timestamp   time.Time    `json:"timestamp"`
	Order       *wirePayload `json:"order"`
}

// Normalize parses a transport frame into an OrderEvent. Unknown event names
// and payloads missing an order number are rejected; callers log and drop
// them without invoking listeners.
func Normalize(name string, data json.RawMessage) (OrderEvent, error) {
	kind, ok := KnownEvent(name)
	if !ok {
		return OrderEvent{}, fmt.Errorf("notify: unknown event name %q", name)
	}

	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return OrderEvent{}, fmt.Errorf("notify: decode %q payload: %w", name, err)
	}

	// Nested shape: the interesting fields live one level down, but the
	// branch may sit at either level.
	inner := &p
	if p.Order != nil {
		inner = p.Order
	}

	if inner.OrderNumber == "" {
		return OrderEvent{}, fmt.Errorf("notify: event %q missing order number", name)
	}

	ev := OrderEvent{
		Kind:        kind,
		OrderID:     inner.OrderID,
		OrderNumber: inner.OrderNumber,
		Status:      inner.Status,
		Branch:      firstNonEmpty(inner.Branch, inner.BranchID, p.Branch, p.BranchID),
		ActorRole:   firstNonEmpty(inner.ActorRole, p.ActorRole),
		Timestamp:   inner.Timestamp,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.Timestamp
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return ev, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
