package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// contextKey is used for storing the identity in context
type contextKey string

const (
	identityContextKey contextKey = "authenticated_identity"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	// Issuer is checked when set.
	Issuer    string
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
	// Optional lets requests without an Authorization header through as anonymous.
	// A header that is present must still carry a valid token.
	Optional bool
}

// JWTMiddleware creates a middleware that validates HS256 identity tokens
// and stores the identity (sub and email claims) in the request context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if config.Optional {
					return next(c)
				}
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			identity, err := parseIdentity(tokenString, config)
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			ctx := context.WithValue(c.Request().Context(), identityContextKey, identity)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("identity_id", identity.ID.String())

			config.Logger.Debug("Identity authenticated",
				zap.String("identity_id", identity.ID.String()),
				zap.String("path", path))

			return next(c)
		}
	}
}

func parseIdentity(tokenString string, config JWTConfig) (entity.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Secret), nil
	}, opts...)
	if err != nil {
		return entity.Anonymous, err
	}
	if !token.Valid {
		return entity.Anonymous, fmt.Errorf("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return entity.Anonymous, err
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return entity.Anonymous, fmt.Errorf("subject %q is not an identity id", subject)
	}

	email, _ := claims["email"].(string)
	return entity.Identity{ID: id, Email: email}, nil
}

// IdentityFromContext returns the authenticated identity, or Anonymous
func IdentityFromContext(c echo.Context) entity.Identity {
	identity, ok := c.Request().Context().Value(identityContextKey).(entity.Identity)
	if !ok {
		return entity.Anonymous
	}
	return identity
}
