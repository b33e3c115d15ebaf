package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// State of the guard.
type State int

const (
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// ErrPolicyViolation is reported when a session belongs to an address outside
// the institution's domain.
var ErrPolicyViolation = errors.New("policy violation")

// Snapshot is a consistent view of the guard.
type Snapshot struct {
	State   State
	Email   string
	Message string
	Err     error
}

// Guard is the only component that decides whether authenticated content is shown.
type Guard struct {
	provider     Provider
	domainSuffix string

	mu        sync.Mutex
	state     State
	session   *Session
	message   string
	err       error
	listeners map[int]func(Snapshot)
	nextID    int

	unsubscribe func()
}

// NewGuard starts in Unknown and listens to provider session changes until Close.
func NewGuard(provider Provider, domainSuffix string) *Guard {
	g := &Guard{
		provider:     provider,
		domainSuffix: strings.ToLower(strings.TrimSpace(domainSuffix)),
		state:        Unknown,
		listeners:    make(map[int]func(Snapshot)),
	}
	g.unsubscribe = provider.OnSessionChange(func(s *Session) {
		g.apply(context.Background(), s)
	})
	return g
}

// Check resolves Unknown from the persisted session. A failing check degrades
// to Unauthenticated with a message instead of returning an error.
func (g *Guard) Check(ctx context.Context) Snapshot {
	s, err := g.provider.CurrentSession(ctx)
	if err != nil {
		slog.Warn("Session check failed", "err", err)
		g.set(Unauthenticated, nil, "Unable to verify your sign-in: "+err.Error(), err)
		return g.Snapshot()
	}
	g.apply(ctx, s)
	return g.Snapshot()
}

// SignIn moves to Unknown while the provider runs its login flow. The outcome
// arrives through the provider's session change notification.
func (g *Guard) SignIn(ctx context.Context, providerName, redirectTo string) error {
	g.set(Unknown, nil, "", nil)
	if err := g.provider.SignInWithProvider(ctx, providerName, redirectTo); err != nil {
		slog.Warn("Sign-in failed", "provider", providerName, "err", err)
		g.set(Unauthenticated, nil, "Sign-in failed: "+err.Error(), err)
		return fmt.Errorf("sign in with %s: %w", providerName, err)
	}
	if snap := g.Snapshot(); snap.State == Unknown {
		// The provider finished without reporting a session.
		g.set(Unauthenticated, nil, "Sign-in was not completed", nil)
	}
	return g.Snapshot().Err
}

// SignOut ends the session explicitly.
func (g *Guard) SignOut(ctx context.Context) error {
	err := g.provider.SignOut(ctx)
	g.set(Unauthenticated, nil, "", nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Snapshot returns the current state.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// State is shorthand for Snapshot().State.
func (g *Guard) State() State {
	return g.Snapshot().State
}

// AccessToken returns the bearer token of an authorized session.
func (g *Guard) AccessToken() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated || g.session == nil {
		return "", false
	}
	return g.session.AccessToken, true
}

// Subscribe registers fn for every state change until the returned func is called.
func (g *Guard) Subscribe(fn func(Snapshot)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Close stops listening to the provider.
func (g *Guard) Close() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Allowed reports whether email satisfies the domain policy.
func (g *Guard) Allowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	return strings.HasSuffix(email, g.domainSuffix)
}

func (g *Guard) apply(ctx context.Context, s *Session) {
	if s == nil {
		g.mu.Lock()
		// Keep a policy message visible after the forced sign-out lands.
		msg, err := "", error(nil)
		if errors.Is(g.err, ErrPolicyViolation) {
			msg, err = g.message, g.err
		}
		snap, listeners := g.setLocked(Unauthenticated, nil, msg, err)
		g.mu.Unlock()
		notify(listeners, snap)
		return
	}

	if !g.Allowed(s.User.Email) {
		msg := fmt.Sprintf("Please sign in with your institutional account (%s).", g.domainSuffix)
		slog.Warn("Rejected session outside institution domain", "email", s.User.Email, "required", g.domainSuffix)
		g.set(Unauthenticated, nil, msg, fmt.Errorf("%w: %s is not an %s address", ErrPolicyViolation, s.User.Email, g.domainSuffix))
		if err := g.provider.SignOut(ctx); err != nil {
			slog.Error("Unable to discard rejected session", "err", err)
		}
		return
	}

	g.set(Authenticated, s, "", nil)
}

func (g *Guard) set(state State, s *Session, message string, err error) {
	g.mu.Lock()
	snap, listeners := g.setLocked(state, s, message, err)
	g.mu.Unlock()
	notify(listeners, snap)
}

// setLocked updates the state and returns what to deliver once the lock is
// released.
func (g *Guard) setLocked(state State, s *Session, message string, err error) (Snapshot, []func(Snapshot)) {
	g.state = state
	g.session = s
	g.message = message
	g.err = err
	listeners := make([]func(Snapshot), 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	return g.snapshotLocked(), listeners
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func (g *Guard) snapshotLocked() Snapshot {
	snap := Snapshot{State: g.state, Message: g.message, Err: g.err}
	if g.session != nil {
		snap.Email = g.session.User.Email
	}
	return snap
}
