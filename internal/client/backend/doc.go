// Package backend is the HTTP client for the dogstack backend-as-a-service.
//
// # Overview
//
// The package provides:
//  1. Auth: password sign-in, sign-up (with a PKCE challenge so e-mailed
//     confirmation links come back with a code), code exchange, session
//     retrieval with transparent refresh, user lookup and sign-out.
//  2. Rows: read, insert and patch of the users table through the REST
//     endpoint, scoped by the caller's access token.
//  3. Storage: bearer-authenticated PUT of objects into the profile-pictures
//     bucket and public URL resolution.
//
// The current session is cached in memory and persisted through a
// SessionStorage so it survives process restarts.
//
// # Auth state
//
// Every session change (sign-in, sign-out, refresh) is reported to listeners
// registered with OnAuthStateChange, in the order the changes happen.
// Listeners run synchronously on the goroutine that caused the change and
// must not block on calls that themselves change the session.
//
// # Error Handling
//
// Responses are mapped to *APIError values that unwrap to the sentinels in
// internal/common (ErrInvalidCredentials, ErrUnauthorized, ErrNotFound,
// ErrAlreadyExists, ErrUnavailable), so callers can match with errors.Is.
package backend
