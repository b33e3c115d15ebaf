package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const callbackPage = `<!doctype html>
<html><head><title>Preprints sign-in</title></head>
<body><p>%s</p><p>You can close this window and return to the terminal.</p></body></html>`

// callbackResult is what the browser redirect delivered.
type callbackResult struct {
	code string
	err  error
}

// callbackServer receives the authorization code on a loopback address.
type callbackServer struct {
	server   *http.Server
	listener net.Listener
	results  chan callbackResult
}

// startCallbackServer listens on the host:port of redirectTo and serves its path.
func startCallbackServer(redirectTo string) (*callbackServer, error) {
	u, err := url.Parse(redirectTo)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect target: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for sign-in callback: %w", err)
	}

	cs := &callbackServer{
		listener: ln,
		results:  make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, cs.handle)
	cs.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := cs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Sign-in callback server failed", "err", err)
			cs.deliver(callbackResult{err: err})
		}
	}()

	slog.Debug("Sign-in callback listening", "addr", ln.Addr().String(), "path", path)
	return cs, nil
}

func (cs *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html")

	if msg := q.Get("error_description"); msg != "" || q.Get("error") != "" {
		if msg == "" {
			msg = q.Get("error")
		}
		fmt.Fprintf(w, callbackPage, "Sign-in failed: "+msg)
		cs.deliver(callbackResult{err: errors.New(msg)})
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	fmt.Fprintf(w, callbackPage, "Signed in.")
	cs.deliver(callbackResult{code: code})
}

func (cs *callbackServer) deliver(res callbackResult) {
	select {
	case cs.results <- res:
	default:
	}
}

// wait blocks until the browser returns or ctx ends.
func (cs *callbackServer) wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-cs.results:
		return res.code, res.err
	}
}

func (cs *callbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cs.server.Shutdown(ctx); err != nil {
		slog.Error("Sign-in callback shutdown failed", "err", err)
	}
}
