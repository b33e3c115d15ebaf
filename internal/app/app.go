// Package app wires the catalog client, session guard, admin key holder and
// view model into one context object shared by the commands and the TUI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/preprints/internal/admin"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/config"
	"github.com/lehigh-university-libraries/preprints/internal/identity"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/lehigh-university-libraries/preprints/internal/storage"
	"github.com/lehigh-university-libraries/preprints/internal/suggest"
	"github.com/lehigh-university-libraries/preprints/internal/viewer"
	"github.com/lehigh-university-libraries/preprints/internal/viewmodel"
)

// ErrSignInRequired is returned by RequireSession when the guard is not
// in the authenticated state.
var ErrSignInRequired = errors.New("sign-in required")

// Catalog is the part of the catalog client the app drives.
type Catalog interface {
	viewmodel.Lister
	Get(ctx context.Context, id int) (*models.Preprint, error)
	Create(ctx context.Context, req models.UploadRequest) (*models.Preprint, error)
	Delete(ctx context.Context, id int, token string) error
}

type App struct {
	Config  *config.Config
	Catalog Catalog
	Admin   *admin.Holder
	// Guard is nil when no identity provider is configured.
	Guard  *session.Guard
	View   *viewmodel.Model
	Viewer *viewer.Viewer

	closers []io.Closer
}

// Deps are the pieces New would otherwise build itself.
type Deps struct {
	Catalog  Catalog
	Slots    storage.Slots
	Provider session.Provider
	Viewer   *viewer.Viewer
}

// New opens local state and connects every component described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.OpenSQLite(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Catalog: catalog.NewClient(cfg.APIURL, cfg.HTTPTimeout, cfg.RetryPolicy()),
		Slots:   store,
		Viewer:  viewer.New(viewer.NewFetcher(cfg.HTTPTimeout)),
	}

	if cfg.AuthEnabled() {
		verifier, err := identity.NewJWKSVerifier(ctx, cfg.JWKSURL())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		deps.Provider = identity.NewProvider(identity.Config{
			AuthURL: cfg.AuthURL,
			AnonKey: cfg.AuthAnonKey,
			Timeout: cfg.HTTPTimeout,
		}, store, verifier, identity.Opener(viewer.Open))
	} else {
		slog.Warn("No identity provider configured, sign-in is disabled")
	}

	a := Assemble(ctx, cfg, deps)
	a.closers = append(a.closers, store)
	return a, nil
}

// Assemble builds an App from ready-made dependencies.
func Assemble(ctx context.Context, cfg *config.Config, deps Deps) *App {
	a := &App{
		Config:  cfg,
		Catalog: deps.Catalog,
		Admin:   admin.NewHolder(ctx, deps.Slots),
		View:    viewmodel.New(deps.Catalog),
		Viewer:  deps.Viewer,
	}
	if deps.Provider != nil {
		a.Guard = session.NewGuard(deps.Provider, cfg.AllowedDomain)
	}
	return a
}

func (a *App) Close() error {
	if a.Guard != nil {
		a.Guard.Close()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// RequireSession checks the session guard. It is a no-op when sign-in is
// disabled.
func (a *App) RequireSession(ctx context.Context) error {
	if a.Guard == nil {
		return nil
	}
	snap := a.Guard.Check(ctx)
	if snap.State == session.Authenticated {
		return nil
	}
	if snap.Message != "" {
		return fmt.Errorf("%w: %s", ErrSignInRequired, snap.Message)
	}
	return fmt.Errorf("%w: run `preprints auth login` first", ErrSignInRequired)
}

// SignIn starts the browser login with the configured provider.
func (a *App) SignIn(ctx context.Context) error {
	if a.Guard == nil {
		return errors.New("no identity provider configured (set PREPRINTS_AUTH_URL)")
	}
	return a.Guard.SignIn(ctx, a.Config.AuthProvider, a.Config.RedirectURL())
}

// Upload creates the preprint and then refreshes the list with the new item
// selected. A failed refresh after a successful upload is logged only.
func (a *App) Upload(ctx context.Context, req models.UploadRequest) (*models.Preprint, error) {
	created, err := a.Catalog.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := a.View.AfterUpload(ctx, *created); err != nil {
		slog.Warn("Refresh after upload failed", "id", created.ID, "err", err)
	}
	return created, nil
}

// Delete removes id using the held admin key and drops it from the list.
func (a *App) Delete(ctx context.Context, id int) error {
	token, ok := a.Admin.Token()
	if !ok {
		return &catalog.APIError{Kind: catalog.ErrUnauthorized, Message: "Admin mode is not active"}
	}
	if err := a.Catalog.Delete(ctx, id, token); err != nil {
		return err
	}
	a.View.AfterDelete(id)
	return nil
}

// Suggester returns the metadata suggestion service for the configured provider.
func (a *App) Suggester() (*suggest.Service, error) {
	model := a.Config.GeminiModel
	if a.Config.SuggestProvider == "openai" {
		model = a.Config.OpenAIModel
	}
	return suggest.NewService(suggest.Options{
		Provider:     a.Config.SuggestProvider,
		Model:        model,
		GeminiAPIKey: a.Config.GeminiAPIKey,
		OpenAIAPIKey: a.Config.OpenAIAPIKey,
	})
}
