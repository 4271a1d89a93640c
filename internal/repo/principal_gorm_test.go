package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"natours-api/internal/domain"
	"natours-api/internal/feature/user"
	"natours-api/internal/query"
)

func dryRunPrincipals(t *testing.T) *PrincipalGorm {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "u:p@tcp(127.0.0.1:3306)/natours?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return NewPrincipalGorm(db)
}

func TestGormReadsAreActiveOnly(t *testing.T) {
	r := dryRunPrincipals(t)
	spec := query.Spec{
		Conditions: []query.Condition{{Field: "role", Op: query.OpEq, Value: "guide"}},
		Sort:       []query.SortKey{{Field: "createdAt", Desc: true}},
		Page:       1,
		Limit:      10,
	}
	var rows []user.PrincipalModel
	stmt := r.model(context.Background(), OpFind).Scopes(spec.GormScope(user.Columns)).Find(&rows).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "FROM `users`")
	assert.Contains(t, sql, "active = ?")
	assert.Contains(t, sql, "`role` = ?")
	assert.Contains(t, sql, "ORDER BY `created_at` DESC")
	assert.Contains(t, stmt.Vars, true)
}

func TestGormDeleteAllIsUnscoped(t *testing.T) {
	r := dryRunPrincipals(t)
	_, err := r.DeleteAll(context.Background())
	assert.NoError(t, err)
}

func TestGormCreateKeepsInactive(t *testing.T) {
	r := dryRunPrincipals(t)
	p := &domain.Principal{ID: "p-1", Name: "Lourdes", Email: "lou@example.com", Role: domain.RoleUser, Active: false}
	stmt := r.db.Create(user.FromDomain(p)).Statement
	assert.Contains(t, stmt.SQL.String(), "`active`")
	assert.Contains(t, stmt.Vars, false)
	assert.NotContains(t, stmt.Vars, true)
}
