package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/common"
)

const profileColumns = "id,first_name,last_name,address,profile_image_url,banner_image_url,headline"

// nullableProfile tolerates SQL NULLs in the text columns.
type nullableProfile struct {
	ID              string  `json:"id"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Address         *string `json:"address"`
	ProfileImageURL *string `json:"profile_image_url"`
	BannerImageURL  *string `json:"banner_image_url"`
	Headline        *string `json:"headline"`
}

func (p nullableProfile) toModel() *models.UserProfile {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &models.UserProfile{
		ID:              p.ID,
		FirstName:       deref(p.FirstName),
		LastName:        deref(p.LastName),
		Address:         deref(p.Address),
		ProfileImageURL: deref(p.ProfileImageURL),
		BannerImageURL:  p.BannerImageURL,
		Headline:        p.Headline,
	}
}

func usersPath() string {
	return "/rest/v1/" + common.UsersTable
}

func byID(userID string) url.Values {
	return url.Values{"id": {"eq." + userID}}
}

// GetProfile reads the users row of userID. A missing row is reported as
// common.ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	q := byID(userID)
	q.Set("select", profileColumns)

	h := http.Header{}
	// Single-object responses turn "no rows" into a 406 / PGRST116.
	h.Set("Accept", "application/vnd.pgrst.object+json")

	var p nullableProfile
	if err := c.doAuthed(ctx, request{method: http.MethodGet, path: usersPath(), query: q, headers: h}, &p); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
		}
		return nil, err
	}
	return p.toModel(), nil
}

// InsertProfile creates an empty users row for userID. An existing row is
// reported as common.ErrAlreadyExists.
func (c *Client) InsertProfile(ctx context.Context, userID string) error {
	h := http.Header{}
	h.Set("Prefer", "return=minimal")

	return c.doAuthed(ctx, request{
		method:  http.MethodPost,
		path:    usersPath(),
		body:    map[string]string{"id": userID},
		headers: h,
	}, nil)
}

// UpdateProfile patches the users row of userID and returns the stored row.
func (c *Client) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.UserProfile, error) {
	if upd.Empty() {
		return c.GetProfile(ctx, userID)
	}

	q := byID(userID)
	q.Set("select", profileColumns)
	h := http.Header{}
	h.Set("Prefer", "return=representation")

	var rows []nullableProfile
	if err := c.doAuthed(ctx, request{method: http.MethodPatch, path: usersPath(), query: q, body: upd, headers: h}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
	}
	return rows[0].toModel(), nil
}
