// Package profile decides whether a signed-in user still has to fill in the
// mandatory profile fields before reaching the main screens.
package profile

import (
	"context"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/logging"
)

// Completeness is the gate's verdict for one user.
type Completeness int

const (
	// Unknown means the check has not finished for the current user.
	Unknown Completeness = iota
	Complete
	Incomplete
)

func (c Completeness) String() string {
	switch c {
	case Complete:
		return "complete"
	case Incomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// IsComplete reports whether first name, last name, address and profile
// image URL are all non-empty.
func IsComplete(p *models.UserProfile) bool {
	if p == nil {
		return false
	}
	for _, v := range []string{p.FirstName, p.LastName, p.Address, p.ProfileImageURL} {
		if v == "" {
			return false
		}
	}
	return true
}

// Reader fetches a users row.
type Reader interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Gate classifies users by their users row.
type Gate struct {
	reader Reader
	logger logging.Logger
}

func NewGate(r Reader, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gate{reader: r, logger: logger}
}

// Check fetches the profile of userID. A failed fetch counts as Incomplete.
func (g *Gate) Check(ctx context.Context, userID string) Completeness {
	p, err := g.reader.GetProfile(ctx, userID)
	if err != nil {
		g.logger.Debug(ctx, "profile fetch failed, treating as incomplete", "user_id", userID, "error", err)
		return Incomplete
	}
	if IsComplete(p) {
		return Complete
	}
	return Incomplete
}
