// Package identity talks to a Supabase-style auth server on behalf of the
// session guard: PKCE browser login, token refresh, sign-out, and the
// persisted session.
package identity

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/lehigh-university-libraries/preprints/internal/storage"
)

// SessionSlot is where the provider keeps the signed-in session.
const SessionSlot = "auth_session"

// Opener shows a URL to the user, normally by launching a browser.
type Opener func(target string) error

// Config configures the auth server client.
type Config struct {
	AuthURL string
	AnonKey string
	Timeout time.Duration
}

// Provider implements session.Provider against the auth server REST API.
type Provider struct {
	authURL    string
	anonKey    string
	slots      storage.Slots
	verifier   *Verifier
	open       Opener
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	subscribers map[int]func(*session.Session)
	nextID      int
}

// NewProvider creates a provider. verifier may be nil, in which case access
// tokens are trusted as issued.
func NewProvider(cfg Config, slots storage.Slots, verifier *Verifier, open Opener) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		authURL:     strings.TrimSuffix(cfg.AuthURL, "/"),
		anonKey:     cfg.AnonKey,
		slots:       slots,
		verifier:    verifier,
		open:        open,
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
		subscribers: make(map[int]func(*session.Session)),
	}
}

// tokenResponse is the auth server's session payload
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *session.Session {
	s := &session.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         session.User{ID: t.User.ID, Email: t.User.Email},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

// CurrentSession loads the persisted session, refreshing it when expired.
// A session that can no longer be used is discarded and nil is returned.
func (p *Provider) CurrentSession(ctx context.Context) (*session.Session, error) {
	raw, ok, err := p.slots.Get(ctx, SessionSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		slog.Warn("Discarding unreadable stored session", "err", err)
		return nil, p.clear(ctx)
	}

	if s.Expired(p.now()) {
		if s.RefreshToken == "" {
			return nil, p.clear(ctx)
		}
		refreshed, err := p.refresh(ctx, s.RefreshToken)
		if err != nil {
			var rejected *rejectedError
			if errors.As(err, &rejected) {
				slog.Info("Stored session could not be refreshed", "err", err)
				return nil, p.clear(ctx)
			}
			return nil, err
		}
		if err := p.store(ctx, refreshed); err != nil {
			return nil, err
		}
		s = *refreshed
	}

	if p.verifier != nil {
		claims, err := p.verifier.Verify(s.AccessToken)
		if err != nil {
			slog.Warn("Discarding stored session", "err", err)
			return nil, p.clear(ctx)
		}
		if s.User.Email == "" {
			s.User.Email = claims.Email
		}
	}

	return &s, nil
}

// SignInWithProvider runs the PKCE authorization code flow: it opens the
// authorize URL, waits for the redirect on the loopback redirectTo address,
// and exchanges the code for a session.
func (p *Provider) SignInWithProvider(ctx context.Context, provider, redirectTo string) error {
	verifier, challenge, err := newPKCE()
	if err != nil {
		return err
	}

	cb, err := startCallbackServer(redirectTo)
	if err != nil {
		return err
	}
	defer cb.shutdown()

	authorizeURL := p.AuthorizeURL(provider, redirectTo, challenge)
	slog.Info("Opening browser for sign-in", "provider", provider)
	if p.open != nil {
		if err := p.open(authorizeURL); err != nil {
			slog.Warn("Unable to open browser, visit the URL manually", "url", authorizeURL, "err", err)
		}
	}

	code, err := cb.wait(ctx)
	if err != nil {
		return fmt.Errorf("sign-in callback: %w", err)
	}

	tok, err := p.postToken(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	s := tok.session(p.now())
	if p.verifier != nil {
		if _, err := p.verifier.Verify(s.AccessToken); err != nil {
			return err
		}
	}
	if err := p.store(ctx, s); err != nil {
		return err
	}
	p.emit(s)
	return nil
}

// AuthorizeURL builds the browser URL that starts a login with provider.
func (p *Provider) AuthorizeURL(provider, redirectTo, challenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")
	return p.authURL + "/auth/v1/authorize?" + q.Encode()
}

// SignOut revokes the session at the server (best effort) and forgets it locally.
func (p *Provider) SignOut(ctx context.Context) error {
	raw, ok, err := p.slots.Get(ctx, SessionSlot)
	if err == nil && ok {
		var s session.Session
		if json.Unmarshal([]byte(raw), &s) == nil && s.AccessToken != "" {
			if err := p.logout(ctx, s.AccessToken); err != nil {
				slog.Warn("Server sign-out failed", "err", err)
			}
		}
	}

	if err := p.clear(ctx); err != nil {
		return err
	}
	p.emit(nil)
	return nil
}

// OnSessionChange registers fn until the returned func is called.
func (p *Provider) OnSessionChange(fn func(*session.Session)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

func (p *Provider) emit(s *session.Session) {
	p.mu.Lock()
	subs := make([]func(*session.Session), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (p *Provider) store(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := p.slots.Set(ctx, SessionSlot, string(data)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (p *Provider) clear(ctx context.Context) error {
	if err := p.slots.Delete(ctx, SessionSlot); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	tok, err := p.postToken(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	return tok.session(p.now()), nil
}

// rejectedError is a 4xx from the token endpoint
type rejectedError struct {
	status int
	body   string
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("auth server rejected request with status %d: %s", e.status, e.body)
}

func (p *Provider) postToken(ctx context.Context, grantType string, payload map[string]string) (*tokenResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	tokenURL := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", p.authURL, url.QueryEscape(grantType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, &rejectedError{status: resp.StatusCode, body: string(body)}
		}
		return nil, fmt.Errorf("auth server returned status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("auth server returned no access token")
	}
	return &tok, nil
}

func (p *Provider) logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach auth server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("logout failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// newPKCE returns a code verifier and its S256 challenge.
func newPKCE() (verifier, challenge string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
