// Package devdata reads the JSON fixtures used to seed a development database.
// Documents carry Mongo-style "_id" strings and tour start dates written as
// "2006-01-02,15:04".
package devdata

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"

	"natours-api/internal/domain"
	"natours-api/internal/repo"
)

const (
	ToursFile   = "tours.json"
	UsersFile   = "users.json"
	ReviewsFile = "reviews.json"
)

var dateLayouts = []string{"2006-01-02,15:04", time.RFC3339, "2006-01-02"}

type Dataset struct {
	Tours      []domain.Tour
	Principals []domain.Principal
	Reviews    []domain.Review
}

type tourDoc struct {
	domain.Tour
	OID        string   `json:"_id"`
	StartDates []string `json:"startDates"`
	SecretTour bool     `json:"secretTour"`
}

type userDoc struct {
	OID      string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Photo    string `json:"photo"`
	Active   *bool  `json:"active"`
	Password string `json:"password"`
}

type reviewDoc struct {
	OID    string `json:"_id"`
	Review string `json:"review"`
	Rating int    `json:"rating"`
	Tour   string `json:"tour"`
	User   string `json:"user"`
}

// HashFunc turns a plaintext fixture password into a stored digest.
type HashFunc func(plaintext string) (string, error)

// Load reads all three fixture files from fsys. Passwords that are already
// bcrypt digests are kept; anything else goes through hash.
func Load(fsys fs.FS, hash HashFunc, now time.Time) (*Dataset, error) {
	var (
		tours   []tourDoc
		users   []userDoc
		reviews []reviewDoc
	)
	for name, dst := range map[string]any{ToursFile: &tours, UsersFile: &users, ReviewsFile: &reviews} {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	ds := &Dataset{}
	for i, d := range tours {
		t, err := d.toTour(now)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", ToursFile, i, err)
		}
		ds.Tours = append(ds.Tours, t)
	}
	for i, d := range users {
		p, err := d.toPrincipal(hash, now)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", UsersFile, i, err)
		}
		ds.Principals = append(ds.Principals, p)
	}
	for i, d := range reviews {
		r, err := d.toReview(now)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", ReviewsFile, i, err)
		}
		ds.Reviews = append(ds.Reviews, r)
	}
	return ds, nil
}

func (d tourDoc) toTour(now time.Time) (domain.Tour, error) {
	t := d.Tour
	t.SecretTour = d.SecretTour
	if d.OID != "" {
		id, err := repo.ParseObjectID(d.OID)
		if err != nil {
			return t, err
		}
		t.ID = id
	}
	t.StartDates = nil
	for _, s := range d.StartDates {
		at, err := parseDate(s)
		if err != nil {
			return t, err
		}
		t.StartDates = append(t.StartDates, at)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.Normalize()
	return t, t.Validate()
}

func (d userDoc) toPrincipal(hash HashFunc, now time.Time) (domain.Principal, error) {
	role := domain.RoleUser
	if d.Role != "" {
		r, err := domain.ParseRole(d.Role)
		if err != nil {
			return domain.Principal{}, err
		}
		role = r
	}
	digest := d.Password
	if !strings.HasPrefix(digest, "$2") {
		var err error
		if digest, err = hash(d.Password); err != nil {
			return domain.Principal{}, err
		}
	}
	id := d.OID
	if id == "" {
		id = uuid.NewString()
	}
	active := d.Active == nil || *d.Active
	return domain.Principal{
		ID:           id,
		Name:         strings.TrimSpace(d.Name),
		Email:        domain.NormalizeEmail(d.Email),
		Photo:        d.Photo,
		Role:         role,
		PasswordHash: digest,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (d reviewDoc) toReview(now time.Time) (domain.Review, error) {
	r := domain.Review{Review: d.Review, Rating: d.Rating, User: d.User, CreatedAt: now}
	if d.OID != "" {
		id, err := repo.ParseObjectID(d.OID)
		if err != nil {
			return r, err
		}
		r.ID = id
	}
	tour, err := repo.ParseObjectID(d.Tour)
	if err != nil {
		return r, err
	}
	r.Tour = tour
	return r, r.Validate()
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.Validation(fmt.Sprintf("invalid start date %q", s))
}
