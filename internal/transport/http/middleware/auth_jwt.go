package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"natours-api/internal/core/auth"
	"natours-api/internal/domain"
)

const (
	// CookieName carries the session token for browser clients.
	CookieName = "jwt"
	// KeyPrincipal is the gin context key of the authenticated principal.
	KeyPrincipal = "principal"
)

var (
	errTokenExpired = domain.Unauthenticated("Your token has expired! Please log in again.")
	errTokenInvalid = domain.Unauthenticated("Invalid token. Please log in again!")
)

// Decision is the terminal state of request authentication.
type Decision int

const (
	PassThroughAnonymous Decision = iota
	Authenticated
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	}
	return "anonymous"
}

type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Principal, error)
}

// Authenticator resolves the principal behind a session token. It only reads
// from the store.
type Authenticator struct {
	Tokens     *auth.TokenService
	Principals PrincipalFinder
}

// Token returns the bearer token, falling back to the session cookie.
func Token(r *http.Request) string {
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if ck, err := r.Cookie(CookieName); err == nil {
		return ck.Value
	}
	return ""
}

// Decide runs the authentication steps for r. A missing token is
// PassThroughAnonymous; the caller decides whether that is acceptable.
func (a *Authenticator) Decide(r *http.Request) (Decision, *domain.Principal, error) {
	tok := Token(r)
	if tok == "" {
		return PassThroughAnonymous, nil, domain.ErrNotLoggedIn
	}
	id, err := a.Tokens.Verify(tok)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return Rejected, nil, errTokenExpired
	case err != nil:
		return Rejected, nil, errTokenInvalid
	}
	p, err := a.Principals.FindByID(r.Context(), id.PrincipalID)
	if errors.Is(err, domain.ErrPrincipalNotFound) {
		return Rejected, nil, domain.ErrPrincipalGone
	}
	if err != nil {
		return Rejected, nil, err
	}
	if p.ChangedPasswordAfter(id.IssuedAt) {
		return Rejected, nil, domain.ErrReauthenticate
	}
	return Authenticated, p, nil
}

// Protect rejects every request that does not end Authenticated.
func (a *Authenticator) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, p, err := a.Decide(c.Request)
		RecordAuth("protect", d.String())
		if d != Authenticated {
			_ = c.Error(err)
			c.Abort()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// Optional attaches the principal when one resolves and otherwise lets the
// request through anonymously. Only a failing principal store aborts.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, p, err := a.Decide(c.Request)
		var de *domain.Error
		if d == Rejected && !errors.As(err, &de) {
			RecordAuth("optional", "error")
			_ = c.Error(err)
			c.Abort()
			return
		}
		RecordAuth("optional", d.String())
		if d == Authenticated {
			setPrincipal(c, p)
		}
		c.Next()
	}
}

// Authorize admits principals holding one of roles. It must run after
// Protect. Unknown roles panic while routes are being built.
func Authorize(roles ...domain.Role) gin.HandlerFunc {
	if len(roles) == 0 {
		panic("middleware: Authorize needs at least one role")
	}
	for _, r := range roles {
		if !r.Valid() {
			panic(fmt.Sprintf("middleware: unknown role %q", r))
		}
	}
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			RecordAuth("authorize", Rejected.String())
			_ = c.Error(domain.ErrNotLoggedIn)
			c.Abort()
			return
		}
		if !p.HasRole(roles...) {
			RecordAuth("authorize", "forbidden")
			_ = c.Error(domain.ErrNoPermission)
			c.Abort()
			return
		}
		c.Next()
	}
}

type principalKey struct{}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by Protect or Optional.
func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok && p != nil
}

func CurrentPrincipal(c *gin.Context) (*domain.Principal, bool) {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}

func setPrincipal(c *gin.Context, p *domain.Principal) {
	c.Set(KeyPrincipal, p)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}
