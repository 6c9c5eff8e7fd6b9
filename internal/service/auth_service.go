package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

type authClient interface {
	Login(ctx context.Context, email, password string) (civic.Token, error)
	Me(ctx context.Context, token string) (models.UserProfile, error)
}

// AuthConfig defines configuration for token validation.
type AuthConfig struct {
	// JWTSecret is the backend's HS256 signing key. When empty, signatures
	// are not checked locally and the backend remains the only authority.
	JWTSecret  string
	ProfileTTL time.Duration
	Leeway     time.Duration
}

// LoginRequest holds credentials forwarded to the backend.
type LoginRequest struct {
	Email    string `json:"email" form:"username" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// AuthService authenticates callers against the civic backend.
type AuthService struct {
	client    authClient
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(client authClient, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ProfileTTL <= 0 {
		config.ProfileTTL = 5 * time.Minute
	}
	if config.Leeway <= 0 {
		config.Leeway = 30 * time.Second
	}
	if config.JWTSecret == "" {
		logger.Warn("CIVIC_JWT_SECRET not set; token signatures are verified by the civic backend only")
	}
	return &AuthService{client: client, cache: cache, validator: newValidator(validate), logger: logger, config: config, now: time.Now}
}

// Login exchanges credentials for a backend token and resolves the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*dto.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	token, err := s.client.Login(ctx, req.Email, req.Password)
	if err != nil {
		mapped := civic.ToAppError(err)
		if errors.Is(mapped, appErrors.ErrUnauthorized) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "incorrect email or password, or user is inactive")
		}
		return nil, mapped
	}

	session, _, err := s.Resolve(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", session.Profile.ID), zap.String("role", string(session.Profile.Role)))

	return &dto.LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Profile:     session.Profile,
	}, nil
}

// ValidateToken checks the token's expiry and, when a secret is configured, its signature.
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.config.Leeway),
		jwt.WithTimeFunc(s.now),
	}

	var err error
	if s.config.JWTSecret != "" {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.config.JWTSecret), nil
		}, append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))...)
	} else {
		_, _, err = jwt.NewParser(opts...).ParseUnverified(tokenString, claims)
		if err == nil {
			err = jwt.NewValidator(opts...).Validate(claims)
		}
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}
	return claims, nil
}

// Resolve validates token and returns the caller's session. The boolean
// reports whether the profile came from cache.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Session, bool, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, false, err
	}

	key := profileCacheKey(tokenDigest(token))
	var profile models.UserProfile
	hit := s.cache.Lookup(ctx, key, &profile)
	if !hit {
		profile, err = s.client.Me(ctx, token)
		if err != nil {
			return nil, false, civic.ToAppError(err)
		}
		ttl := s.config.ProfileTTL
		if claims.ExpiresAt != nil {
			if remaining := claims.ExpiresAt.Sub(s.now()); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			_ = s.cache.Set(ctx, key, profile, ttl)
		}
	}

	if !strings.EqualFold(profile.Email, claims.Subject) {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorized, "token subject does not match profile")
	}
	if !profile.IsActive {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}
	return &models.Session{AccessToken: token, TokenType: "bearer", Profile: profile}, hit, nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}
