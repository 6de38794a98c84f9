package flash

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
)

// CookieName carries the flash token between the redirect and the next GET.
const CookieName = "postboard_flash"

// DefaultTTL bounds how long an unread flash survives.
const DefaultTTL = 5 * time.Minute

// Service stores flashes in a Repository and hands the browser only a random token.
type Service struct {
	repo Repository
	ttl  time.Duration
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, ttl: ttl}
}

// Save stores f and returns its token.
func (s *Service) Save(ctx context.Context, f *Flash) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	f.ExpiresAt = time.Now().UTC().Add(s.ttl)
	if err := s.repo.Put(ctx, token, f); err != nil {
		return "", err
	}
	return token, nil
}

// Load returns and consumes the flash for token, nil when absent or expired.
func (s *Service) Load(ctx context.Context, token string) (*Flash, error) {
	if token == "" {
		return nil, nil
	}
	f, err := s.repo.Pull(ctx, token)
	if err != nil || f == nil {
		return nil, err
	}
	if time.Now().UTC().After(f.ExpiresAt) {
		return nil, nil
	}
	return f, nil
}

// Set saves f and attaches its token cookie to the response. A failed save is
// logged and the request carries on without a flash.
func (s *Service) Set(c *gin.Context, f *Flash) {
	token, err := s.Save(c.Request.Context(), f)
	if err != nil {
		logger.Warnf("flash: save failed: %v", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(s.ttl.Seconds()), "/", "", false, true)
}

// Take consumes the flash referenced by the request cookie and clears the cookie.
func (s *Service) Take(c *gin.Context) *Flash {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		return nil
	}
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	f, err := s.Load(c.Request.Context(), token)
	if err != nil {
		logger.Warnf("flash: load failed: %v", err)
		return nil
	}
	return f
}
