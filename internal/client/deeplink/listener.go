package deeplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CallbackPath is the route the loopback listener serves.
const CallbackPath = "/auth/callback"

// Listener receives auth callbacks on a loopback HTTP address and hands them
// to a Handler as if the OS had delivered the app link.
type Listener struct {
	handler  *Handler
	redirect *url.URL
	srv      *http.Server
	ln       net.Listener
}

// NewListener builds a Listener for addr. redirectURL is the app link the
// backend e-mails (e.g. dogstack://auth/callback); incoming query strings are
// grafted onto it before handling.
func NewListener(addr, redirectURL string, h *Handler) (*Listener, error) {
	ru, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url: %w", err)
	}
	l := &Listener{handler: h, redirect: ru}
	l.srv = &http.Server{
		Addr:              addr,
		Handler:           l.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return l, nil
}

// Router wires the callback route.
func (l *Listener) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(CallbackPath, l.callback)
	r.NotFound(http.NotFoundHandler().ServeHTTP)
	return r
}

// AppURL rebuilds the app link for an incoming callback request.
func (l *Listener) AppURL(r *http.Request) string {
	u := *l.redirect
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func (l *Listener) callback(w http.ResponseWriter, r *http.Request) {
	ok := l.handler.exchange(r.Context(), l.AppURL(r))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Sign-in link could not be used. Return to dogstack and sign in again.\n"))
		return
	}
	_, _ = w.Write([]byte("Signed in. You can return to dogstack.\n"))
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.srv.Addr, err)
	}
	l.ln = ln

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.handler.logger.Error(ctx, "callback listener stopped", "error", err)
		}
	}()
	l.handler.logger.Info(ctx, "callback listener started", "addr", ln.Addr().String())
	return nil
}

// Addr is the bound address once Start succeeded.
func (l *Listener) Addr() string {
	if l.ln == nil {
		return l.srv.Addr
	}
	return l.ln.Addr().String()
}

// Shutdown stops the listener gracefully.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}
