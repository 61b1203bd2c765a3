// Package netx holds small HTTP helpers shared by the storage uploaders.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response body is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError reports a response whose status was not the expected one.
// Body holds (a prefix of) the raw response body for display.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// Put sends body to url with a single PUT and the given headers. Anything but
// 200 OK is returned as *StatusError. There is no retry.
func Put(ctx context.Context, client *http.Client, url string, body []byte, headers http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
