package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenType      = errors.New("token type mismatch")
	ErrInvalidSubject = errors.New("invalid token subject")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims - полезная нагрузка токена: тип плюс стандартные поля (sub = пользователь, jti = id токена).
type Claims struct {
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из subject.
func (c *Claims) UserID() (uuid.UUID, error) {
	return parseNonNil(c.Subject, ErrInvalidSubject)
}

// TokenID возвращает jti; для refresh-токена он совпадает с id записи в БД.
func (c *Claims) TokenID() (uuid.UUID, error) {
	return parseNonNil(c.ID, ErrInvalidToken)
}

func parseNonNil(value string, sentinel error) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, sentinel
	}
	return id, nil
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    map[TokenType]time.Duration
	now    func() time.Time
}

// NewTokenManager создает менеджер HS256-токенов.
func NewTokenManager(secret string, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl: map[TokenType]time.Duration{
			TokenTypeAccess:  accessTTL,
			TokenTypeRefresh: refreshTTL,
		},
		now: time.Now,
	}
}

// NewTokenPair выпускает access-токен со случайным jti и refresh-токен с jti = refreshTokenID.
func (m *TokenManager) NewTokenPair(userID uuid.UUID, refreshTokenID uuid.UUID) (TokenPair, error) {
	var pair TokenPair
	var err error

	pair.AccessToken, pair.AccessExpiresAt, err = m.sign(userID, uuid.New(), TokenTypeAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	pair.RefreshToken, pair.RefreshExpiresAt, err = m.sign(userID, refreshTokenID, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return pair, nil
}

func (m *TokenManager) ParseAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeAccess)
}

func (m *TokenManager) ParseRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeRefresh)
}

func (m *TokenManager) sign(userID, tokenID uuid.UUID, tokenType TokenType) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl[tokenType])

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ID:        tokenID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (m *TokenManager) parse(tokenString string, expected TokenType) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, m.key)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !token.Valid:
		return nil, ErrInvalidToken
	case claims.TokenType != expected:
		return nil, ErrTokenType
	}

	return claims, nil
}

func (m *TokenManager) key(*jwt.Token) (interface{}, error) {
	return m.secret, nil
}
