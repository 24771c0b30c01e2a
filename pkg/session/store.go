// Package session persists the terminal's local state between restarts: the
// serialized principal snapshot, the auth token, and the notification mute
// flag. All reads and writes go through the Store interface so the resolver
// and the notification channel never touch the backing storage directly.
package session

// Well-known keys. They match what the backend and older terminals expect,
// so a Redis-backed store can be inspected with plain redis-cli.
const (
	KeyPrincipal = "user"
	KeyToken     = "token"
	KeyMuted     = "notificationsMuted"
)

// Store is the persisted key-value state scoped to one terminal session.
//
// Snapshots are opaque bytes: the authorization resolver owns the encoding.
// Writes replace the previous value wholesale; concurrent writers race with
// last-write-wins, which is acceptable because each terminal only writes its
// own state.
type Store interface {
	// LoadPrincipal returns the stored principal snapshot, if any.
	LoadPrincipal() ([]byte, bool)
	// SavePrincipal overwrites the principal snapshot.
	SavePrincipal(raw []byte) error
	// Clear removes the principal snapshot and the token. The mute flag is a
	// user preference and survives logout.
	Clear() error

	Token() (string, bool)
	SetToken(token string) error

	Muted() bool
	SetMuted(muted bool) error
}
