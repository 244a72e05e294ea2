package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cmlre/marine-platform/internal"
)

// User is the signed-in identity carried by a session and persisted in the slot.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              Role   `json:"role"`
	Organization      string `json:"organization,omitempty"`
	PreferredLanguage string `json:"preferredLanguage"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// Permissions returns the access control row for the user's role.
func (u *User) Permissions() Permissions {
	return PermissionsFor(u.Role)
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrMalformedRecord)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrMalformedRecord, u.Role)
	}
	return nil
}

// EncodeRecord serialises the user into the persisted slot format.
func EncodeRecord(u *User) (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode session record: %w", err)
	}
	return string(b), nil
}

// DecodeRecord parses a persisted slot value, rejecting anything that is not a
// complete user with internal.ErrRestoreMalformed.
func DecodeRecord(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, internal.ErrRestoreMalformed.WithCause(fmt.Errorf("%w: %v", ErrMalformedRecord, err))
	}
	if err := u.Validate(); err != nil {
		return nil, internal.ErrRestoreMalformed.WithCause(err)
	}
	if u.PreferredLanguage == "" {
		u.PreferredLanguage = DefaultLanguage
	}
	return &u, nil
}
