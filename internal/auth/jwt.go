package auth

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims carries the authenticated identity: user id, role, and the linked
// vendor-profile id for vendor principals.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	VendorID uuid.UUID `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

func (s *Service) GenerateToken(p domain.Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   p.ID,
		Role:     string(p.Role),
		VendorID: p.VendorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies an HS256 token and maps its claims onto
// a Principal.
func (s *Service) ValidateToken(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrExpiredToken
		}
		return domain.Principal{}, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return domain.Principal{}, ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin:
	default:
		return domain.Principal{}, ErrInvalidToken
	}

	return domain.Principal{ID: claims.UserID, Role: role, VendorID: claims.VendorID}, nil
}
