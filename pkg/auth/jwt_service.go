package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenLifespan matches the expiry the registration flow has always issued.
const DefaultTokenLifespan = 36000 * time.Second

const issuer = "devconnector-api"

var (
	ErrMissingCredential = errors.New("no token, authorization denied")
	ErrInvalidCredential = errors.New("invalid token, authorization denied")
)

// Identity is the authenticated principal carried by a verified token.
type Identity struct {
	UserID uuid.UUID
}

type TokenUser struct {
	ID string `json:"id"`
}

type CustomClaims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secretKey     []byte
	tokenLifespan time.Duration
	now           func() time.Time
}

func NewJWTService(secretKey string, tokenLifespan time.Duration) *JWTService {
	if tokenLifespan <= 0 {
		tokenLifespan = DefaultTokenLifespan
	}
	return &JWTService{
		secretKey:     []byte(secretKey),
		tokenLifespan: tokenLifespan,
		now:           time.Now,
	}
}

func (s *JWTService) GenerateToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := CustomClaims{
		TokenUser{ID: userID.String()},
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifespan)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   userID.String(),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign token: %w", err)
	}

	return signedString, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signature algorithm: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("error when parsing token claims")
}

// Verify is the admission check applied to every protected request. The raw
// value is used as-is; no scheme prefix is expected.
func (s *JWTService) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingCredential
	}

	claims, err := s.ValidateToken(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	userID, err := uuid.Parse(claims.User.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad user id in claims", ErrInvalidCredential)
	}

	return Identity{UserID: userID}, nil
}
