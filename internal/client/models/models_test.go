package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		s    *Session
		want bool
	}{
		{name: "nil session", s: nil, want: false},
		{name: "zero expiry", s: &Session{}, want: false},
		{name: "far future", s: &Session{ExpiresAt: now.Add(time.Hour)}, want: false},
		{name: "inside margin", s: &Session{ExpiresAt: now.Add(10 * time.Second)}, want: true},
		{name: "past", s: &Session{ExpiresAt: now.Add(-time.Minute)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Expired(now, 30*time.Second))
		})
	}
}

func TestProfileUpdate_ApplyAndEmpty(t *testing.T) {
	require.True(t, ProfileUpdate{}.Empty())

	url := "https://cdn/u1-banner.jpeg"
	name := "Rex"
	u := ProfileUpdate{FirstName: &name, BannerImageURL: &url}
	require.False(t, u.Empty())

	p := UserProfile{ID: "u1", FirstName: "old", LastName: "Dog"}
	u.Apply(&p)

	assert.Equal(t, "Rex", p.FirstName)
	assert.Equal(t, "Dog", p.LastName)
	require.NotNil(t, p.BannerImageURL)
	assert.Equal(t, url, *p.BannerImageURL)
	assert.Nil(t, p.Headline)
}

func TestProfileUpdate_JSONOmitsUnsetFields(t *testing.T) {
	img := "https://cdn/u1.jpeg"
	b, err := json.Marshal(ProfileUpdate{ProfileImageURL: &img})
	require.NoError(t, err)
	assert.JSONEq(t, `{"profile_image_url":"https://cdn/u1.jpeg"}`, string(b))
}
