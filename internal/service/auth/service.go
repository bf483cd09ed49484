package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/ports"
)

const (
	tokenTTL     = 24 * time.Hour
	userCacheTTL = 5 * time.Minute
)

// Service implements ports.AuthService with bcrypt password hashes and HS256
// session tokens. Each account gets a fresh ledger identity at registration;
// the token carries it so handlers never trust a client-supplied identity.
// The cache, when present, short-circuits repeated token validation; it is
// keyed by user id so at most one account record is cached per user.
type Service struct {
	users     ports.UserRepository
	cache     ports.Cache
	clock     ports.Clock
	jwtSecret []byte
	log       *zap.Logger
}

func NewService(users ports.UserRepository, cache ports.Cache, clock ports.Clock, jwtSecret string, log *zap.Logger) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Service{
		users:     users,
		cache:     cache,
		clock:     clock,
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
}

// Register creates an API account with a generated ledger identity.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required: %w", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", domain.ErrInvalidInput)
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Identity:     "vx:" + uuid.New().String(),
		Role:         domain.UserRoleParticipant,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("identity", user.Identity),
	)
	return user, nil
}

// Login verifies credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"identity": user.Identity,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID))
	return signed, nil
}

// ValidateToken parses a session token and resolves its account.
func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims: %w", domain.ErrUnauthorized)
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject: %w", domain.ErrUnauthorized)
	}

	if user := s.cachedUser(ctx, userID); user != nil {
		return user, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrUnauthorized)
	}
	s.cacheUser(ctx, user)
	return user, nil
}

func (s *Service) cachedUser(ctx context.Context, userID string) *domain.User {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, "auth:user:"+userID)
	if err != nil || raw == "" {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

func (s *Service) cacheUser(ctx context.Context, user *domain.User) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, "auth:user:"+user.ID, string(raw), int(userCacheTTL.Seconds())); err != nil {
		s.log.Warn("Failed to cache user", zap.String("user_id", user.ID), zap.Error(err))
	}
}
