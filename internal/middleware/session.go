package middleware

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

const tokenIssuer = "quizbank"

type ctxKey int

const sessionIDKey ctxKey = iota

// SessionID returns the session id attached by Sessions.
func SessionID(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey).(string)
	return sid, ok && sid != ""
}

// WithSessionID attaches sid to ctx.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sid)
}

type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions keeps an opaque session id in a signed cookie. The cookie value
// is an HS256 JWT whose subject is a random UUID; nothing else about the
// user is stored client-side.
type Sessions struct {
	key        []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	log        *zap.Logger
	now        func() time.Time
}

func NewSessions(cfg SessionConfig, log *zap.Logger) (*Sessions, error) {
	if cfg.Secret == "" {
		return nil, errors.New("missing session secret")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "quiz_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	key, err := deriveKey(cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Sessions{
		key:        key,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
		log:        log,
		now:        time.Now,
	}, nil
}

// deriveKey stretches the configured secret into a 256-bit signing key.
func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("quizbank session cookie v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// Handler resolves or creates the session id and puts it on the request
// context. Cookies past half their lifetime are re-issued.
func (s *Sessions) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, issuedAt, ok := s.read(r)
		if !ok {
			sid = uuid.NewString()
		}
		if !ok || s.now().Sub(issuedAt) > s.ttl/2 {
			if err := s.issue(w, sid); err != nil {
				s.log.Error("issue session cookie failed", zap.Error(err))
				http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
	})
}

func (s *Sessions) read(r *http.Request) (string, time.Time, bool) {
	c, err := r.Cookie(s.cookieName)
	if err != nil || c.Value == "" {
		return "", time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims,
		func(t *jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		s.log.Debug("discarding session cookie", zap.Error(err))
		return "", time.Time{}, false
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, false
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return claims.Subject, issuedAt, true
}

func (s *Sessions) issue(w http.ResponseWriter, sid string) error {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
