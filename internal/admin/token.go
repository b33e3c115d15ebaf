// Package admin holds the operator key that unlocks destructive actions.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/storage"
)

// SlotName is the persistent slot the key is kept in.
const SlotName = "rvu_admin_key"

// Holder keeps the admin key in memory and mirrors it to a persistent slot.
// The key is not checked against the backend here; a bad key surfaces as
// catalog.ErrUnauthorized on the first delete.
type Holder struct {
	slots storage.Slots

	mu    sync.RWMutex
	token string
}

// NewHolder restores any previously saved key from slots.
func NewHolder(ctx context.Context, slots storage.Slots) *Holder {
	h := &Holder{slots: slots}
	token, ok, err := slots.Get(ctx, SlotName)
	if err != nil {
		slog.Warn("Unable to restore admin key", "err", err)
		return h
	}
	if ok {
		h.token = token
	}
	return h
}

// Login stores rawKey after trimming. Blank input is rejected.
func (h *Holder) Login(ctx context.Context, rawKey string) error {
	key := strings.TrimSpace(rawKey)
	if key == "" {
		return &catalog.APIError{Kind: catalog.ErrInvalidInput, Message: "Admin key must not be empty"}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.slots.Set(ctx, SlotName, key); err != nil {
		return fmt.Errorf("failed to save admin key: %w", err)
	}
	h.token = key
	slog.Info("Admin mode enabled")
	return nil
}

// Logout forgets the key in memory and in the slot.
func (h *Holder) Logout(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = ""
	if err := h.slots.Delete(ctx, SlotName); err != nil {
		return fmt.Errorf("failed to clear admin key: %w", err)
	}
	slog.Info("Admin mode disabled")
	return nil
}

// Token returns the held key and whether one is present.
func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

// Active reports whether delete should be offered at all.
func (h *Holder) Active() bool {
	_, ok := h.Token()
	return ok
}
