package repo

import (
	"context"
	"sync"
	"time"

	"natours-api/internal/domain"
	"natours-api/internal/query"
)

// PrincipalMemory is an in-process principal store for development and tests.
type PrincipalMemory struct {
	mu    sync.Mutex
	byID  map[string]*domain.Principal
	hooks *Hooks[[]query.Condition]
}

func activeConditions() Interceptor[[]query.Condition] {
	return Interceptor[[]query.Condition]{
		Pre: func(_ Operation, conds []query.Condition) []query.Condition {
			out := make([]query.Condition, 0, len(conds)+1)
			out = append(out, conds...)
			return append(out, query.Condition{Field: "active", Op: query.OpEq, Value: true})
		},
	}
}

func NewPrincipalMemory(seed ...domain.Principal) *PrincipalMemory {
	m := &PrincipalMemory{
		byID:  map[string]*domain.Principal{},
		hooks: NewHooks[[]query.Condition]().On(append(ReadOps, OpUpdate), activeConditions()),
	}
	for i := range seed {
		p := seed[i]
		m.byID[p.ID] = &p
	}
	return m
}

func principalFields(p domain.Principal) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"email":     p.Email,
		"photo":     p.Photo,
		"role":      string(p.Role),
		"createdAt": p.CreatedAt,
		"active":    p.Active,
	}
}

func (m *PrincipalMemory) executor() *query.MemoryExecutor[domain.Principal] {
	items := make([]domain.Principal, 0, len(m.byID))
	for _, p := range m.byID {
		items = append(items, *p)
	}
	return &query.MemoryExecutor[domain.Principal]{Items: items, Fields: principalFields}
}

func (m *PrincipalMemory) Count(ctx context.Context, conds []query.Condition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executor().Count(ctx, m.hooks.Before(OpCount, conds))
}

func (m *PrincipalMemory) Find(ctx context.Context, spec query.Spec) ([]domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec.Conditions = m.hooks.Before(OpFind, spec.Conditions)
	return m.executor().Find(ctx, spec)
}

// match returns the first principal satisfying pred and the op's hooks.
func (m *PrincipalMemory) match(op Operation, pred func(*domain.Principal) bool) *domain.Principal {
	conds := m.hooks.Before(op, nil)
	for _, p := range m.byID {
		if pred(p) && query.Matches(principalFields(*p), conds) {
			return p
		}
	}
	return nil
}

func (m *PrincipalMemory) Create(ctx context.Context, p *domain.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Email == p.Email {
			return domain.Validation("Duplicate field value: email. Please use another value!")
		}
		if other.Name == p.Name {
			return domain.Validation("Duplicate field value: name. Please use another value!")
		}
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *PrincipalMemory) find(ctx context.Context, pred func(*domain.Principal) bool) (*domain.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.match(OpFindOne, pred)
	if p == nil {
		return nil, domain.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *PrincipalMemory) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	return m.find(ctx, func(p *domain.Principal) bool { return p.ID == id })
}

func (m *PrincipalMemory) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	email = domain.NormalizeEmail(email)
	return m.find(ctx, func(p *domain.Principal) bool { return p.Email == email })
}

func (m *PrincipalMemory) mutate(ctx context.Context, id string, fn func(*domain.Principal) error) (*domain.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.match(OpUpdate, func(p *domain.Principal) bool { return p.ID == id })
	if p == nil {
		return nil, domain.ErrPrincipalNotFound
	}
	next := *p
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	*p = next
	cp := next
	return &cp, nil
}

func (m *PrincipalMemory) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	_, err := m.mutate(ctx, id, func(p *domain.Principal) error {
		p.PasswordHash = hash
		p.PasswordChangedAt = &changedAt
		p.PasswordResetToken = ""
		p.PasswordResetExpires = nil
		return nil
	})
	return err
}

func (m *PrincipalMemory) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Principal, error) {
	return m.mutate(ctx, id, func(p *domain.Principal) error {
		if u.Email != nil {
			for _, other := range m.byID {
				if other.ID != id && other.Email == *u.Email {
					return domain.Validation("Duplicate field value: email. Please use another value!")
				}
			}
			p.Email = *u.Email
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		return nil
	})
}

func (m *PrincipalMemory) SetRole(ctx context.Context, id string, role domain.Role) (*domain.Principal, error) {
	return m.mutate(ctx, id, func(p *domain.Principal) error {
		p.Role = role
		return nil
	})
}

func (m *PrincipalMemory) Deactivate(ctx context.Context, id string) error {
	_, err := m.mutate(ctx, id, func(p *domain.Principal) error {
		p.Active = false
		return nil
	})
	return err
}

func (m *PrincipalMemory) StoreResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	_, err := m.mutate(ctx, id, func(p *domain.Principal) error {
		p.PasswordResetToken = hash
		p.PasswordResetExpires = &expires
		return nil
	})
	return err
}

func (m *PrincipalMemory) ClearResetToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		p.PasswordResetToken = ""
		p.PasswordResetExpires = nil
	}
	return nil
}

func (m *PrincipalMemory) ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.match(OpUpdate, func(p *domain.Principal) bool {
		return hash != "" && p.PasswordResetToken == hash &&
			p.PasswordResetExpires != nil && p.PasswordResetExpires.After(now)
	})
	if p == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	p.PasswordHash = passwordHash
	p.PasswordChangedAt = &now
	p.PasswordResetToken = ""
	p.PasswordResetExpires = nil
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

func (m *PrincipalMemory) DiscardResetToken(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if hash != "" && p.PasswordResetToken == hash {
			p.PasswordResetToken = ""
			p.PasswordResetExpires = nil
		}
	}
	return nil
}

// Snapshot returns a copy of a stored principal regardless of its state.
func (m *PrincipalMemory) Snapshot(id string) (domain.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.Principal{}, false
	}
	return *p, true
}
