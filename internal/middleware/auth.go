package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

const (
	claimsKey       = "user"
	bearerTokenKey  = "bearer_token"
	GuestHeader     = "X-Guest-Token"
	guestQueryParam = "token"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization header format")
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", errMissingHeader
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errBadFormat
	}
	return parts[1], nil
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the verified claims for handlers.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tokenString, err := bearerToken(c)
			if err != nil {
				log.Warn("Rejected request", zap.Error(err))
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalJWTMiddleware stores claims when a valid bearer token is present and
// lets every request through. A bearer value that is not a valid token is kept
// so handlers can treat it as a guest token.
func OptionalJWTMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return next(c)
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				c.Set(bearerTokenKey, tokenString)
				return next(c)
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

func setClaims(c echo.Context, claims *jwtutil.UserClaims) {
	c.Set(claimsKey, claims)
	log := logger.FromEcho(c).With(zap.String("user_id", claims.UserID))
	logger.SetEcho(c, log)
	c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), log)))
	log.Debug("JWT token validated successfully")
}

// ClaimsFrom returns the verified claims stored by the auth middlewares
func ClaimsFrom(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims, ok && claims != nil
}

// GuestToken returns a guest order token from the X-Guest-Token header, the
// token query parameter, or an unverified bearer value, in that order.
func GuestToken(c echo.Context) string {
	if t := c.Request().Header.Get(GuestHeader); t != "" {
		return t
	}
	if t := c.QueryParam(guestQueryParam); t != "" {
		return t
	}
	if t, ok := c.Get(bearerTokenKey).(string); ok {
		return t
	}
	return ""
}
