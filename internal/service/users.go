package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"natours-api/internal/core/events"
	"natours-api/internal/domain"
	"natours-api/internal/query"
)

type UserService struct {
	Principals PrincipalStore
	Events     Publisher
	Log        *zap.Logger
}

type UpdateMeInput struct {
	Name            *string
	Email           *string
	Password        string
	PasswordConfirm string
}

func (s *UserService) Me(ctx context.Context, id string) (*domain.Principal, error) {
	return s.Principals.FindByID(ctx, id)
}

// UpdateMe changes only name and email. Password fields are refused.
func (s *UserService) UpdateMe(ctx context.Context, id string, in UpdateMeInput) (*domain.Principal, error) {
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, domain.Validation("This route is not for password updates. Please use /updateMyPassword.")
	}
	var u domain.ProfileUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Validation("Please tell us your name!")
		}
		u.Name = &name
	}
	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, domain.Validation("Please provide your email")
		}
		u.Email = &email
	}
	return s.Principals.UpdateProfile(ctx, id, u)
}

// DeleteMe deactivates the principal. Nothing is removed.
func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	return s.deactivate(ctx, id, "self")
}

func (s *UserService) List(ctx context.Context, v url.Values) (query.Result[domain.Principal], error) {
	return query.Execute[domain.Principal](ctx, query.New(v, PrincipalSchema), s.Principals)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.Principal, error) {
	return s.Principals.FindByID(ctx, id)
}

func (s *UserService) SetRole(ctx context.Context, id, role string) (*domain.Principal, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p, err := s.Principals.SetRole(ctx, id, r)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Events, s.Log, events.Event{Type: events.PrincipalRoleChanged, PrincipalID: id, Detail: string(r)})
	return p, nil
}

func (s *UserService) Deactivate(ctx context.Context, id string) error {
	return s.deactivate(ctx, id, "admin")
}

func (s *UserService) deactivate(ctx context.Context, id, by string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Principals.Deactivate(ctx, id); err != nil {
		return err
	}
	logOr(s.Log).Info("principal deactivated", zap.String("principal", id), zap.String("by", by))
	publish(ctx, s.Events, s.Log, events.Event{Type: events.PrincipalDeactivated, PrincipalID: id, Detail: by})
	return nil
}
