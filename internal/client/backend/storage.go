package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/dogstack/internal/netx"
)

// Storage uploads objects to one bucket of the storage endpoint.
type Storage struct {
	baseURL string
	bucket  string
	http    *http.Client
}

// NewStorage builds a Storage for bucket at baseURL (the storage API root,
// e.g. https://host/storage/v1).
func NewStorage(baseURL, bucket string, client *http.Client) *Storage {
	if client == nil {
		client = http.DefaultClient
	}
	return &Storage{baseURL: strings.TrimRight(baseURL, "/"), bucket: bucket, http: client}
}

// ObjectURL is where key is uploaded to.
func (s *Storage) ObjectURL(key string) string {
	return s.baseURL + "/object/" + s.bucket + "/" + url.PathEscape(key)
}

// Put uploads data under key with a single authenticated PUT. Only 200 OK
// counts as success; anything else is a *netx.StatusError.
func (s *Storage) Put(ctx context.Context, key string, data []byte, accessToken string) error {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Cache-Control", "3600")
	return netx.Put(ctx, s.http, s.ObjectURL(key), data, h)
}

// PublicURL is the stable unauthenticated link of key.
func (s *Storage) PublicURL(key string) string {
	return s.baseURL + "/object/public/" + s.bucket + "/" + url.PathEscape(key)
}
