package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Auth errors.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbiddenRole      = errors.New("role not allowed for this operation")
	ErrSessionInvalidated = errors.New("login session replaced or expired")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	Role      model.Role `json:"role"`
	UserID    uuid.UUID  `json:"user_id"`
	CollegeID uuid.UUID  `json:"college_id,omitempty"` // Student and college only
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID    uuid.UUID
	Role      model.Role
	CollegeID uuid.UUID
	TokenID   string
}

// AuthService handles password hashing, JWT and student login sessions.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a token for the given identity. Student tokens also
// replace the student's login session in Redis, so older tokens stop working.
func (s *AuthService) IssueToken(ctx context.Context, role model.Role, userID, collegeID uuid.UUID) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		Role:      role,
		UserID:    userID,
		CollegeID: collegeID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if role == model.RoleStudent {
		key := config.CacheKey.StudentLoginKey(userID)
		if err := s.rdb.Set(ctx, key, jti, s.cfg.JWTExpiry).Err(); err != nil {
			return "", fmt.Errorf("store login session: %w", err)
		}
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticate turns a bearer token into a verified identity.
func (s *AuthService) Authenticate(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return &Identity{
		UserID:    claims.UserID,
		Role:      claims.Role,
		CollegeID: claims.CollegeID,
		TokenID:   claims.ID,
	}, nil
}

// Authorize allows the identity when its role is one of roles.
func (s *AuthService) Authorize(id *Identity, roles ...model.Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !slices.Contains(roles, id.Role) {
		return ErrForbiddenRole
	}
	return nil
}

// ValidateStudentSession checks that the token's JTI is the student's latest login.
func (s *AuthService) ValidateStudentSession(ctx context.Context, studentID uuid.UUID, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.StudentLoginKey(studentID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check login session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetStudentSession removes a student's login session, logging them out.
func (s *AuthService) ResetStudentSession(ctx context.Context, studentID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentLoginKey(studentID)).Err()
}
