package models

// UserProfile is the subset of the backend users row the client reads.
// ID equals the auth user id.
type UserProfile struct {
	ID              string  `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Address         string  `json:"address"`
	ProfileImageURL string  `json:"profile_image_url"`
	BannerImageURL  *string `json:"banner_image_url,omitempty"`
	Headline        *string `json:"headline,omitempty"`
}

// ProfileUpdate is a partial write to a users row. Nil fields are left
// untouched on the backend.
type ProfileUpdate struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Address         *string `json:"address,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	BannerImageURL  *string `json:"banner_image_url,omitempty"`
	Headline        *string `json:"headline,omitempty"`
}

// Empty reports whether the update would not change anything.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Address == nil &&
		u.ProfileImageURL == nil && u.BannerImageURL == nil && u.Headline == nil
}

// Apply copies the set fields of u onto p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.ProfileImageURL != nil {
		p.ProfileImageURL = *u.ProfileImageURL
	}
	if u.BannerImageURL != nil {
		v := *u.BannerImageURL
		p.BannerImageURL = &v
	}
	if u.Headline != nil {
		v := *u.Headline
		p.Headline = &v
	}
}
