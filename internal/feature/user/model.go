// Package user holds the SQL row model of a principal.
package user

import (
	"time"

	"natours-api/internal/domain"
)

type PrincipalModel struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"uniqueIndex;size:64;not null"`
	Photo        string `gorm:"size:255;not null;default:default.jpg"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:16;not null;default:user"`

	PasswordChangedAt    *time.Time
	PasswordResetToken   *string `gorm:"size:64;index"`
	PasswordResetExpires *time.Time
	Active               bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (PrincipalModel) TableName() string { return "users" }

// Columns maps public principal fields to SQL columns.
var Columns = map[string]string{
	"id":        "id",
	"name":      "name",
	"email":     "email",
	"photo":     "photo",
	"role":      "role",
	"createdAt": "created_at",
}

func FromDomain(p *domain.Principal) *PrincipalModel {
	m := &PrincipalModel{
		ID:                   p.ID,
		Email:                p.Email,
		Name:                 p.Name,
		Photo:                p.Photo,
		PasswordHash:         p.PasswordHash,
		Role:                 string(p.Role),
		PasswordChangedAt:    p.PasswordChangedAt,
		PasswordResetExpires: p.PasswordResetExpires,
		Active:               p.Active,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.PasswordResetToken != "" {
		tok := p.PasswordResetToken
		m.PasswordResetToken = &tok
	}
	return m
}

func (m *PrincipalModel) ToDomain() *domain.Principal {
	p := &domain.Principal{
		ID:                   m.ID,
		Name:                 m.Name,
		Email:                m.Email,
		Photo:                m.Photo,
		Role:                 domain.Role(m.Role),
		PasswordHash:         m.PasswordHash,
		PasswordChangedAt:    m.PasswordChangedAt,
		PasswordResetExpires: m.PasswordResetExpires,
		Active:               m.Active,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.PasswordResetToken != nil {
		p.PasswordResetToken = *m.PasswordResetToken
	}
	return p
}
