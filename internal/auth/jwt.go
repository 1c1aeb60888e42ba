// Package auth mints and verifies the two token kinds of a session: a
// short-lived access token presented as a bearer header, and a long-lived
// refresh token that lives in an HttpOnly cookie and is stored hashed.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrUnexpectedMethod = errors.New("unexpected signing method")
)

type Claims struct {
	UserID    int64  `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	JTI       string `json:"jti"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) newClaims(userID int64, email, role, tokenType string, ttl time.Duration) Claims {
	now := time.Now().UTC()

	return Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		JTI:       uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}
}

func (m *Manager) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) GenerateAccessToken(userID int64, email, role string) (string, error) {
	return m.sign(m.newClaims(userID, email, role, tokenTypeAccess, m.accessTTL))
}

// GenerateRefreshToken returns the signed token plus its jti and expiry so
// the caller can persist the rotation row.
func (m *Manager) GenerateRefreshToken(userID int64, email, role string) (raw string, jti string, expiresAt time.Time, err error) {
	claims := m.newClaims(userID, email, role, tokenTypeRefresh, m.refreshTTL)

	raw, err = m.sign(claims)

	if err != nil {
		return "", "", time.Time{}, err
	}

	return raw, claims.JTI, claims.ExpiresAt.Time, nil
}

func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// HS256 only
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedMethod
		}

		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) verify(tokenStr, wantType string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)

	if err != nil {
		return nil, err
	}

	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, tokenTypeAccess)
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.verify(tokenStr, tokenTypeRefresh)

	if err != nil {
		return nil, err
	}

	if claims.JTI == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashRefreshToken is what gets stored; the raw refresh token never touches
// the database. HMAC keyed with the signing secret, deterministic so the
// presented token can be matched against its row.
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))

	return hex.EncodeToString(h.Sum(nil))
}
