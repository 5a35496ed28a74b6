// Package flash carries one-shot notices across a redirect in a cookie
// signed with the application secret (HS256).
package flash

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CategoryError   = "error"
	CategorySuccess = "success"
	CategoryInfo    = "info"

	pendingKey = "flash.pending"
	issuer     = "autoblog"
)

// ErrMissingSecret is returned when the store is built without a secret.
var ErrMissingSecret = errors.New("flash: secret is required")

type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

type claims struct {
	Messages []Message `json:"msgs"`
	jwt.RegisteredClaims
}

// Store reads and writes the flash cookie.
type Store struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
}

func NewStore(secret, cookieName string) (*Store, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if cookieName == "" {
		cookieName = "autoblog_flash"
	}
	return &Store{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        10 * time.Minute,
	}, nil
}

// Add queues a notice for the next rendered page.
func (s *Store) Add(c *gin.Context, category, text string) {
	msgs := append(s.pending(c), Message{Category: category, Text: text})
	c.Set(pendingKey, msgs)

	token, err := s.sign(msgs)
	if err != nil {
		_ = c.Error(fmt.Errorf("sign flash cookie: %w", err))
		return
	}
	s.setCookie(c, token, int(s.ttl.Seconds()))
}

// Pop returns the queued notices and clears the cookie. A missing, expired
// or forged cookie yields no messages.
func (s *Store) Pop(c *gin.Context) []Message {
	msgs := s.pending(c)
	c.Set(pendingKey, []Message(nil))
	if _, err := c.Cookie(s.cookieName); err == nil || len(msgs) > 0 {
		s.setCookie(c, "", -1)
	}
	return msgs
}

func (s *Store) pending(c *gin.Context) []Message {
	if v, ok := c.Get(pendingKey); ok {
		msgs, _ := v.([]Message)
		return msgs
	}
	raw, err := c.Cookie(s.cookieName)
	if err != nil || raw == "" {
		return nil
	}
	msgs, err := s.parse(raw)
	if err != nil {
		return nil
	}
	return msgs
}

func (s *Store) sign(msgs []Message) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Messages: msgs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *Store) parse(raw string) ([]Message, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return cl.Messages, nil
}

func (s *Store) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookieName, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
