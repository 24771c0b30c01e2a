package notify

import (
	"fmt"
	"sync"

	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/session"
)

// Toast is what the terminal UI pops for a visible event.
type Toast struct {
	Title string
	Body  string
	Event OrderEvent
}

// Notifier sits between the raw channel and the terminal UI. It applies the
// visibility filter (admins see everything, everyone else only their own
// branch), keeps the unread counter, and honors the persisted mute flag —
// mute silences the audible alert only, never the toast or the counter.
//
// Raw listeners registered directly on the Channel bypass the filter; the
// Notifier only controls the default notification UI.
type Notifier struct {
	resolver *authz.Resolver
	store    session.Store

	// ShowToast and PlaySound are supplied by the UI layer. Either may be
	// nil, in which case that output is skipped.
	ShowToast func(Toast)
	PlaySound func()

	mu     sync.Mutex
	unread int
	unsubs []func()
}

// NewNotifier wires a notifier to the resolver (for the principal's role and
// branch) and the session store (for the mute flag).
func NewNotifier(resolver *authz.Resolver, store session.Store) *Notifier {
	return &Notifier{resolver: resolver, store: store}
}

// Attach subscribes the notifier to both event kinds on the channel.
func (n *Notifier) Attach(ch *Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.unsubs = append(n.unsubs,
		ch.OnNewOrder(n.handle),
		ch.OnOrderUpdate(n.handle),
	)
}

// Detach unsubscribes from the channel. Idempotent.
func (n *Notifier) Detach() {
	n.mu.Lock()
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
}

func (n *Notifier) handle(ev OrderEvent) {
	if !n.visible(ev) {
		logger.Debug("notify: suppressing out-of-branch event",
			"order_number", ev.OrderNumber, "branch", ev.Branch)
		return
	}

	n.mu.Lock()
	n.unread++
	n.mu.Unlock()

	if n.ShowToast != nil {
		n.ShowToast(makeToast(ev))
	}
	if n.PlaySound != nil && !n.store.Muted() {
		n.PlaySound()
	}
}

// visible applies the branch scoping rule: ADMIN sees every room, other
// roles only events tagged with their own branch ID.
func (n *Notifier) visible(ev OrderEvent) bool {
	principal, ok := n.resolver.Principal()
	if !ok {
		return false
	}
	if principal.Role == authz.RoleAdmin {
		return true
	}
	return principal.Branch != "" && principal.Branch == ev.Branch
}

func makeToast(ev OrderEvent) Toast {
	switch ev.Kind {
	case KindUpdated:
		body := ev.Status
		if ev.ActorRole != "" {
			body = fmt.Sprintf("%s (by %s)", ev.Status, ev.ActorRole)
		}
		return Toast{
			Title: fmt.Sprintf("Order #%s updated", ev.OrderNumber),
			Body:  body,
			Event: ev,
		}
	default:
		return Toast{
			Title: fmt.Sprintf("New Order #%s", ev.OrderNumber),
			Event: ev,
		}
	}
}

// Unread returns the current unread count.
func (n *Notifier) Unread() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

// MarkRead resets the unread counter.
func (n *Notifier) MarkRead() {
	n.mu.Lock()
	n.unread = 0
	n.mu.Unlock()
}

// Muted reports the persisted mute preference.
func (n *Notifier) Muted() bool {
	return n.store.Muted()
}

// SetMuted persists the mute preference.
func (n *Notifier) SetMuted(muted bool) error {
	return n.store.SetMuted(muted)
}
