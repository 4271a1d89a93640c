package domain

import (
	"strings"
	"time"
)

// Principal is an identity that can authenticate. It is never hard-deleted.
type Principal struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Photo string `bson:"photo,omitempty" json:"photo,omitempty"`
	Role  Role   `bson:"role" json:"role"`

	PasswordHash         string     `bson:"password" json:"-"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               bool       `bson:"active" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password changed strictly after
// issuedAt, compared at second precision like the token's iat claim.
func (p *Principal) ChangedPasswordAfter(issuedAt time.Time) bool {
	if p.PasswordChangedAt == nil {
		return false
	}
	return p.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// HasRole reports whether the principal's role is among allowed.
func (p *Principal) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if p.Role == r {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate carries the self-service fields a principal may change.
type ProfileUpdate struct {
	Name  *string
	Email *string
}
