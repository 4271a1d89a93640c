package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"
)

const (
	DefaultResetTTL = 10 * time.Minute
	resetTokenBytes = 32
)

// ResetSecret is a freshly generated reset token. Plain is handed out once;
// only Hash is persisted.
type ResetSecret struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

type ResetTokenService struct {
	TTL  time.Duration
	Now  func() time.Time
	Rand io.Reader
}

func NewResetTokenService(ttl time.Duration) *ResetTokenService {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetTokenService{TTL: ttl, Now: time.Now, Rand: rand.Reader}
}

func (s *ResetTokenService) Generate() (ResetSecret, error) {
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ResetSecret{}, err
	}
	plain := hex.EncodeToString(buf)
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return ResetSecret{
		Plain:     plain,
		Hash:      HashSecret(plain),
		ExpiresAt: now().Add(s.TTL),
	}, nil
}

// HashSecret is the lowercase hex SHA-256 of plain.
func HashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
