package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"natours-api/internal/core/events"
	"natours-api/internal/domain"
)

func (f *fixture) userService() *UserService {
	return &UserService{Principals: f.store, Events: f.events, Log: zap.NewNop()}
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.userService().UpdateMe(context.Background(), "u-1", UpdateMeInput{Password: "newpass123"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Contains(t, err.Error(), "/updateMyPassword")
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(t)
	name, email := "Laura Wilson", "LAURA.W@example.com"
	p, err := f.userService().UpdateMe(context.Background(), "u-1", UpdateMeInput{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Laura Wilson", p.Name)
	assert.Equal(t, "laura.w@example.com", p.Email)
	assert.Equal(t, domain.RoleUser, p.Role)
}

func TestDeleteMeDeactivates(t *testing.T) {
	f := newFixture(t)
	svc := f.userService()
	ctx := context.Background()

	require.NoError(t, svc.DeleteMe(ctx, "u-1"))
	_, err := svc.Me(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	p, ok := f.store.Snapshot("u-1")
	require.True(t, ok, "never hard-deleted")
	assert.False(t, p.Active)
	assert.Equal(t, []string{events.PrincipalDeactivated}, f.events.types())
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t)
	svc := f.userService()
	ctx := context.Background()

	res, err := svc.List(ctx, url.Values{"role": {"user"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total, "inactive principals are not listed")

	_, err = svc.List(ctx, url.Values{"password": {"x"}})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	p, err := svc.SetRole(ctx, "u-1", "lead-guide")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLeadGuide, p.Role)

	_, err = svc.SetRole(ctx, "u-1", "superuser")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Get(ctx, "u-2")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	require.NoError(t, svc.Deactivate(ctx, "u-1"))
	assert.ErrorIs(t, svc.Deactivate(ctx, "u-1"), domain.ErrPrincipalNotFound)
}
