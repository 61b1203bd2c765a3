// Package upload implements the profile image upload flow: re-encode a local
// image, PUT it under a deterministic key and store its public URL on the
// users row. Nothing is cached locally and nothing is retried.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/client/models"
	"github.com/dmitrijs2005/dogstack/internal/logging"
)

// ErrMissingCredential is returned when no session is available to
// authorise the upload.
var ErrMissingCredential = errors.New("missing credential: sign in to upload images")

// Purpose selects the target aspect ratio, object key and profile field.
type Purpose int

const (
	PurposeProfile Purpose = iota
	PurposeBanner
)

func (p Purpose) String() string {
	if p == PurposeBanner {
		return "banner"
	}
	return "profile"
}

// Aspect returns the width:height ratio of the purpose.
func (p Purpose) Aspect() (w, h int) {
	if p == PurposeBanner {
		return 3, 1
	}
	return 1, 1
}

// ObjectKey is the storage key for userID's image. Re-uploads overwrite it.
func ObjectKey(userID string, p Purpose) string {
	if p == PurposeBanner {
		return userID + "-banner.jpeg"
	}
	return userID + ".jpeg"
}

func (p Purpose) update(publicURL string) models.ProfileUpdate {
	if p == PurposeBanner {
		return models.ProfileUpdate{BannerImageURL: &publicURL}
	}
	return models.ProfileUpdate{ProfileImageURL: &publicURL}
}

// SessionSource provides the bearer token for the upload.
type SessionSource interface {
	GetSession(ctx context.Context) (*models.Session, error)
}

// ObjectStore stores uploaded bytes and resolves their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, accessToken string) error
	PublicURL(key string) string
}

// ProfileWriter persists the resolved URL on the users row.
type ProfileWriter interface {
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.UserProfile, error)
}

// Uploader runs the upload flow.
type Uploader struct {
	sessions SessionSource
	store    ObjectStore
	profiles ProfileWriter
	logger   logging.Logger
}

func NewUploader(sessions SessionSource, store ObjectStore, profiles ProfileWriter, logger logging.Logger) *Uploader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Uploader{sessions: sessions, store: store, profiles: profiles, logger: logger.With("component", "upload")}
}

// Upload compresses the image at uri (a file:// URI or a plain path), uploads
// it for the signed-in user and writes its public URL to the users row. The
// returned URL is only valid once that write succeeded.
func (u *Uploader) Upload(ctx context.Context, uri string, purpose Purpose) (string, error) {
	f, err := os.Open(localPath(uri))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	data, err := Compress(f, purpose)
	_ = f.Close()
	if err != nil {
		return "", err
	}

	sess, err := u.sessions.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingCredential, err)
	}
	if sess == nil || sess.AccessToken == "" || sess.User.ID == "" {
		return "", ErrMissingCredential
	}

	key := ObjectKey(sess.User.ID, purpose)
	if err := u.store.Put(ctx, key, data, sess.AccessToken); err != nil {
		return "", err
	}

	publicURL := u.store.PublicURL(key)
	if _, err := u.profiles.UpdateProfile(ctx, sess.User.ID, purpose.update(publicURL)); err != nil {
		return "", fmt.Errorf("save %s image url: %w", purpose, err)
	}

	u.logger.Info(ctx, "image uploaded", "purpose", purpose.String(), "key", key, "bytes", len(data))
	return publicURL, nil
}

func localPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	if p, err := url.Parse(uri); err == nil {
		return p.Path
	}
	return strings.TrimPrefix(uri, "file://")
}
