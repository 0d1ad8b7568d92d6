package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	sessionCookieName = "pm_session"

	// SessionTTL bounds both the signed token and its session-store entry.
	SessionTTL = 7 * 24 * time.Hour
)

var (
	errMissingSession = errors.New("missing session cookie")
	errInvalidSession = errors.New("invalid session")
)

// Auth issues and validates session tokens carried in the pm_session cookie.
// A token is an HS256 JWT whose session id must also be present in the
// session store, so logout (or a flushed store) invalidates it before expiry.
type Auth struct {
	username string
	password string
	secret   []byte
	sessions Sessions

	// SecureCookies marks issued cookies Secure; enable behind TLS.
	SecureCookies bool

	parser *jwt.Parser
}

// NewAuth creates an Auth validating the given credentials and signing
// session tokens with secret.
func NewAuth(username, password string, secret []byte, sessions Sessions) *Auth {
	return &Auth{
		username: username,
		password: password,
		secret:   secret,
		sessions: sessions,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// VerifyCredentials checks a login attempt in constant time.
func (a *Auth) VerifyCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// IssueSession mints a session token and records its id as active.
func (a *Auth) IssueSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	claims := jwt.MapClaims{
		"jti": id,
		"iat": now.Unix(),
		"exp": now.Add(SessionTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", err
	}
	if err := a.sessions.Add(ctx, id); err != nil {
		return "", err
	}
	return token, nil
}

// SessionFromRequest authenticates the request's session cookie and returns
// the session id.
func (a *Auth) SessionFromRequest(c echo.Context) (string, error) {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", errMissingSession
	}
	id, err := a.sessionID(cookie.Value)
	if err != nil {
		return "", err
	}
	active, err := a.sessions.Contains(c.Request().Context(), id)
	if err != nil {
		return "", err
	}
	if !active {
		return "", errInvalidSession
	}
	return id, nil
}

// InvalidateSession removes the request's session from the active store.
// Best effort: an unparseable cookie has nothing to remove.
func (a *Auth) InvalidateSession(c echo.Context) {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	if id, err := a.sessionID(cookie.Value); err == nil {
		_ = a.sessions.Remove(c.Request().Context(), id)
	}
}

func (a *Auth) sessionID(raw string) (string, error) {
	token, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return "", errors.New("token used before issued")
	}

	id, ok := claims["jti"].(string)
	if !ok || id == "" {
		return "", errors.New("missing session id")
	}
	return id, nil
}

func setSessionCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func clearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   -1,
	})
}
