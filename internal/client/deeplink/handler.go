// Package deeplink turns auth callback URLs into sessions. URLs arrive either
// while the client runs or as the initial URL of a cold start; both take the
// same path.
package deeplink

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/common"
	"github.com/dmitrijs2005/dogstack/internal/logging"
)

// Exchanger trades the auth code carried by a callback URL for a session.
type Exchanger interface {
	ExchangeCode(ctx context.Context, rawURL string) (*models.User, error)
}

// Handler filters incoming URLs and exchanges the relevant ones.
type Handler struct {
	exchanger Exchanger
	logger    logging.Logger
}

func NewHandler(ex Exchanger, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{exchanger: ex, logger: logger.With("component", "deeplink")}
}

// IsAuthCallback reports whether rawURL has a code query parameter, even an
// empty one. Nothing else about the URL is checked.
func IsAuthCallback(rawURL string) bool {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return false
	}
	query, _, _ = strings.Cut(query, "#")
	values, _ := url.ParseQuery(query)
	return values.Has(common.AuthCodeParam)
}

// Handle processes a URL delivered while the client is running.
func (h *Handler) Handle(ctx context.Context, rawURL string) {
	h.exchange(ctx, rawURL)
}

// HandleInitial processes the URL the client was started with, if any.
func (h *Handler) HandleInitial(ctx context.Context, rawURL string) {
	if rawURL == "" {
		return
	}
	h.exchange(ctx, rawURL)
}

// exchange reports whether a session was obtained. Failures are logged only;
// the user stays on the sign-in screen.
func (h *Handler) exchange(ctx context.Context, rawURL string) bool {
	if !IsAuthCallback(rawURL) {
		h.logger.Debug(ctx, "ignoring url without auth code")
		return false
	}

	u, err := h.exchanger.ExchangeCode(ctx, rawURL)
	if err != nil {
		h.logger.Warn(ctx, "auth code exchange failed", "error", err)
		return false
	}
	h.logger.Info(ctx, "signed in from link", "user_id", u.ID)
	return true
}
