package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

const tokenIssuer = "hamza-trader-gateway"

var errInvalidToken = errors.New("invalid or expired token")

// AuthManager signs the gateway's bearer tokens and holds the manager PIN.
// A token only names a gateway session; the backend token never leaves the
// server.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	// managerPIN is a bcrypt hash, empty when no PIN is configured.
	managerPIN string
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// TokenClaims is what a verified bearer token says about its holder.
type TokenClaims struct {
	UserID    string
	Role      string
	SessionID string
}

func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string) (*AuthManager, error) {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	a := &AuthManager{secret: []byte(secret), tokenTTL: tokenTTL}
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		hashed, err := hashPassword(pin)
		if err != nil {
			return nil, err
		}
		a.managerPIN = hashed
	}
	return a, nil
}

// Issue signs a token for session. It expires with the session or after the
// token TTL, whichever comes first.
func (a *AuthManager) Issue(session domain.Session) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt.UTC()
	}
	token, err := a.sign(session.UserID, session.Role, session.ID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (TokenClaims, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return TokenClaims{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.SessionID == "" {
		return TokenClaims{}, errors.New("invalid token subject")
	}
	return TokenClaims{UserID: sub, Role: claims.Role, SessionID: claims.SessionID}, nil
}

func (a *AuthManager) sign(userID, role, sessionID string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role:      role,
		SessionID: sessionID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// PINRequired reports whether cancelling a sale needs the manager PIN.
func (a *AuthManager) PINRequired() bool {
	return a.managerPIN != ""
}

func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	return verifyPassword(a.managerPIN, pin)
}

func verifyPassword(stored string, input string) bool {
	input = strings.TrimSpace(input)
	if stored == "" || input == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
