package common

const (
	// APIKeyHeaderName carries the project anon key on every backend request.
	APIKeyHeaderName = "apikey"

	// RequestIDHeaderName tags outbound requests for backend log correlation.
	RequestIDHeaderName = "X-Client-Request-Id"

	// AuthCodeParam is the query parameter that marks an auth callback URL.
	AuthCodeParam = "code"

	// UsersTable is the row table holding profile records.
	UsersTable = "users"

	// ProfilePicturesBucket is the storage bucket for profile and banner images.
	ProfilePicturesBucket = "profile-pictures"
)
