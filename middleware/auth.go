package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

const (
	customerKey      = "customer"
	commerceTokenKey = "commerce_token"
)

// Claims wraps the commerce customer token in the session cookie.
type Claims struct {
	Email         string `json:"email"`
	CommerceToken string `json:"ctk"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for a customer.
func GenerateToken(email, commerceToken string, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Email:         email,
		CommerceToken: commerceToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken validates a session token and returns its claims.
func ParseToken(tokenString string, cfg *config.AuthConfig) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.CommerceToken == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// SetSessionCookie stores the session token in an httpOnly cookie.
func SetSessionCookie(c *gin.Context, cfg *config.AuthConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, token, maxAge, "/", "", cfg.CookieSecure, true)
}

func ClearSessionCookie(c *gin.Context, cfg *config.AuthConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
}

// AuthMiddleware reads the session cookie, or a Bearer header, and stores the
// customer and the commerce token in the context.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, _ := c.Cookie(cfg.CookieName)
		if tokenString == "" {
			if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Sign in required",
				"code":     apperr.CodeSessionExpired,
				"redirect": cfg.SignInPath,
			})
			return
		}

		claims, err := ParseToken(tokenString, cfg)
		if err != nil {
			ClearSessionCookie(c, cfg)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Session expired",
				"code":     apperr.CodeSessionExpired,
				"redirect": cfg.SignInPath,
			})
			return
		}

		c.Set(customerKey, claims.Email)
		c.Set(commerceTokenKey, claims.CommerceToken)
		c.Request = c.Request.WithContext(logger.WithCustomer(c.Request.Context(), claims.Email))

		c.Next()
	}
}

// GetCustomer returns the signed-in customer's email.
func GetCustomer(c *gin.Context) string {
	return c.GetString(customerKey)
}

// GetCommerceToken returns the commerce customer token of the session.
func GetCommerceToken(c *gin.Context) string {
	return c.GetString(commerceTokenKey)
}
