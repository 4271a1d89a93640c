package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours-api/internal/domain"
	"natours-api/internal/feature/user"
	"natours-api/internal/query"
)

// PrincipalGorm stores principals in the SQL "users" table.
type PrincipalGorm struct {
	db    *gorm.DB
	hooks *Hooks[*gorm.DB]
}

func activeRows() Interceptor[*gorm.DB] {
	return Interceptor[*gorm.DB]{
		Pre: func(_ Operation, db *gorm.DB) *gorm.DB { return db.Where("active = ?", true) },
	}
}

func NewPrincipalGorm(db *gorm.DB) *PrincipalGorm {
	return &PrincipalGorm{
		db:    db,
		hooks: NewHooks[*gorm.DB]().On(append(ReadOps, OpUpdate), activeRows()),
	}
}

// AutoMigrate creates or updates the users table.
func (r *PrincipalGorm) AutoMigrate() error {
	return r.db.AutoMigrate(&user.PrincipalModel{})
}

func (r *PrincipalGorm) model(ctx context.Context, op Operation) *gorm.DB {
	return r.hooks.Before(op, r.db.WithContext(ctx).Model(&user.PrincipalModel{}))
}

func (r *PrincipalGorm) Count(ctx context.Context, conds []query.Condition) (int64, error) {
	var n int64
	err := r.model(ctx, OpCount).Scopes(query.GormWhere(conds, user.Columns)).Count(&n).Error
	return n, err
}

func (r *PrincipalGorm) Find(ctx context.Context, spec query.Spec) ([]domain.Principal, error) {
	var rows []user.PrincipalModel
	if err := r.model(ctx, OpFind).Scopes(spec.GormScope(user.Columns)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Principal, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

func (r *PrincipalGorm) Create(ctx context.Context, p *domain.Principal) error {
	return gormErr(r.db.WithContext(ctx).Create(user.FromDomain(p)).Error, nil)
}

func (r *PrincipalGorm) first(ctx context.Context, where string, arg any) (*domain.Principal, error) {
	var m user.PrincipalModel
	if err := r.model(ctx, OpFindOne).Where(where, arg).First(&m).Error; err != nil {
		return nil, gormErr(err, domain.ErrPrincipalNotFound)
	}
	return m.ToDomain(), nil
}

func (r *PrincipalGorm) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PrincipalGorm) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *PrincipalGorm) update(ctx context.Context, id string, cols map[string]any) error {
	cols["updated_at"] = time.Now()
	res := r.model(ctx, OpUpdate).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return gormErr(res.Error, domain.ErrPrincipalNotFound)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalGorm) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"password_hash":          hash,
		"password_changed_at":    changedAt,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

func (r *PrincipalGorm) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Principal, error) {
	cols := map[string]any{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if len(cols) > 0 {
		if err := r.update(ctx, id, cols); err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *PrincipalGorm) SetRole(ctx context.Context, id string, role domain.Role) (*domain.Principal, error) {
	if err := r.update(ctx, id, map[string]any{"role": string(role)}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PrincipalGorm) Deactivate(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"active": false})
}

func (r *PrincipalGorm) StoreResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	return r.update(ctx, id, map[string]any{
		"password_reset_token":   hash,
		"password_reset_expires": expires,
	})
}

func (r *PrincipalGorm) ClearResetToken(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&user.PrincipalModel{}).Where("id = ?", id).
		Updates(map[string]any{"password_reset_token": nil, "password_reset_expires": nil}).Error
}

// ConsumeResetToken locks the matching row, so two concurrent consumers of
// one token cannot both succeed.
func (r *PrincipalGorm) ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Principal, error) {
	var out *domain.Principal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m user.PrincipalModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("password_reset_token = ? AND password_reset_expires > ? AND active = ?", hash, now, true).
			First(&m).Error
		if err != nil {
			return gormErr(err, domain.ErrInvalidOrExpiredToken)
		}
		err = tx.Model(&m).Updates(map[string]any{
			"password_hash":          passwordHash,
			"password_changed_at":    now,
			"password_reset_token":   nil,
			"password_reset_expires": nil,
			"updated_at":             now,
		}).Error
		if err != nil {
			return err
		}
		m.PasswordHash = passwordHash
		m.PasswordChangedAt = &now
		m.PasswordResetToken = nil
		m.PasswordResetExpires = nil
		out = m.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PrincipalGorm) DiscardResetToken(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).Model(&user.PrincipalModel{}).Where("password_reset_token = ?", hash).
		Updates(map[string]any{"password_reset_token": nil, "password_reset_expires": nil}).Error
}

func (r *PrincipalGorm) InsertMany(ctx context.Context, ps []domain.Principal) error {
	rows := make([]*user.PrincipalModel, len(ps))
	for i := range ps {
		rows[i] = user.FromDomain(&ps[i])
	}
	return gormErr(r.db.WithContext(ctx).CreateInBatches(rows, 100).Error, nil)
}

// DeleteAll removes every row, inactive ones included.
func (r *PrincipalGorm) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&user.PrincipalModel{})
	return res.RowsAffected, res.Error
}
