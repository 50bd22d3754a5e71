package profile

import "errors"

var ErrProfileNotFound = errors.New("profile not found")

// Profile is the read-only projection of the auth provider's profiles table.
type Profile struct {
	ID          string
	FullName    *string
	DisplayName *string
	Email       *string
}

// Name prefers the full name and falls back to the display name.
func (p Profile) Name() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	if p.DisplayName != nil {
		return *p.DisplayName
	}
	return ""
}
