// Package respond implements the public submission side of a published
// form: captcha gating, required-answer validation and upload policy.
package respond

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// The captcha alphabet omits visually ambiguous characters (I, O, l, 0, 1).
const captchaAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

// captchaLength matches the six-character challenge shown to respondents.
const captchaLength = 6

// Challenge is one outstanding captcha.
type Challenge struct {
	ID       string    `json:"id"`
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"-"`
}

// NewChallengeValue draws a captcha string.
func NewChallengeValue() string {
	buf := make([]byte, captchaLength)
	maxIdx := big.NewInt(int64(len(captchaAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			panic(err)
		}
		buf[i] = captchaAlphabet[n.Int64()]
	}
	return string(buf)
}

// CaptchaStore tracks outstanding challenges. A challenge is consumed by
// its first verification attempt, pass or fail; a mismatch forces a fresh
// one.
type CaptchaStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	ttl        time.Duration
}

// NewCaptchaStore creates a store whose challenges expire after ttl.
func NewCaptchaStore(ttl time.Duration) *CaptchaStore {
	return &CaptchaStore{
		challenges: make(map[string]Challenge),
		ttl:        ttl,
	}
}

// Issue mints a new challenge.
func (s *CaptchaStore) Issue() Challenge {
	c := Challenge{
		ID:       uuid.New().String(),
		Value:    NewChallengeValue(),
		IssuedAt: time.Now(),
	}
	s.mu.Lock()
	s.challenges[c.ID] = c
	s.mu.Unlock()
	return c
}

// Verify consumes the challenge with the given id and reports whether the
// input matched. Unknown or expired challenges fail.
func (s *CaptchaStore) Verify(id, input string) bool {
	s.mu.Lock()
	c, ok := s.challenges[id]
	delete(s.challenges, id)
	s.mu.Unlock()
	if !ok || time.Since(c.IssuedAt) > s.ttl {
		return false
	}
	return input == c.Value
}

// Cleanup drops expired challenges. Called periodically.
func (s *CaptchaStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.challenges {
		if time.Since(c.IssuedAt) > s.ttl {
			delete(s.challenges, id)
		}
	}
}
