package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:        "test-secret-key",
		TokenExpireHours: 24,
		CookieName:       "session_token",
		SignInPath:       "/sign-in",
	}
}

func TestGenerateToken(t *testing.T) {
	cfg := testAuthConfig()

	token, expiresAt, err := GenerateToken("renter@example.com", "commerce-123", cfg)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}

	claims, err := ParseToken(token, cfg)
	if err != nil {
		t.Fatalf("Failed to parse token: %v", err)
	}
	if claims.Email != "renter@example.com" || claims.CommerceToken != "commerce-123" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	cfg := testAuthConfig()

	sign := func(claims Claims, method jwt.SigningMethod, secret string) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("Failed to sign: %v", err)
		}
		return tok
	}
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid.token.here"},
		{"wrong secret", sign(Claims{Email: "a@b.c", CommerceToken: "x", RegisteredClaims: valid}, jwt.SigningMethodHS256, "other")},
		{"wrong method", sign(Claims{Email: "a@b.c", CommerceToken: "x", RegisteredClaims: valid}, jwt.SigningMethodHS512, cfg.JWTSecret)},
		{"missing commerce token", sign(Claims{Email: "a@b.c", RegisteredClaims: valid}, jwt.SigningMethodHS256, cfg.JWTSecret)},
		{"expired", sign(Claims{
			Email:         "a@b.c",
			CommerceToken: "x",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, jwt.SigningMethodHS256, cfg.JWTSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, cfg); err == nil {
				t.Error("Expected token to be rejected")
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := GenerateToken("renter@example.com", "commerce-123", cfg)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name           string
		cookie         string
		authHeader     string
		expectedStatus int
		clearsCookie   bool
	}{
		{name: "valid cookie", cookie: token, expectedStatus: http.StatusOK},
		{name: "valid bearer header", authHeader: "Bearer " + token, expectedStatus: http.StatusOK},
		{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
		{name: "header without scheme", authHeader: token, expectedStatus: http.StatusUnauthorized},
		{name: "invalid cookie", cookie: "invalid.token.here", expectedStatus: http.StatusUnauthorized, clearsCookie: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"customer": GetCustomer(c),
					"token":    GetCommerceToken(c),
					"logged":   c.Request.Context().Value(logger.CustomerKey),
				})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tt.cookie})
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if tt.expectedStatus == http.StatusOK {
				if body["customer"] != "renter@example.com" || body["token"] != "commerce-123" || body["logged"] != "renter@example.com" {
					t.Errorf("Unexpected context values %v", body)
				}
				return
			}
			if body["code"] != "SESSION_EXPIRED" || body["redirect"] != "/sign-in" {
				t.Errorf("Expected session expired body, got %v", body)
			}
			cleared := strings.Contains(w.Header().Get("Set-Cookie"), "session_token=;")
			if cleared != tt.clearsCookie {
				t.Errorf("Expected cookie cleared %v, got header %q", tt.clearsCookie, w.Header().Get("Set-Cookie"))
			}
		})
	}
}

func TestSetSessionCookie(t *testing.T) {
	cfg := testAuthConfig()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetSessionCookie(c, cfg, "tok", time.Now().Add(time.Hour))

	header := w.Header().Get("Set-Cookie")
	for _, want := range []string{"session_token=tok", "HttpOnly", "Path=/", "SameSite=Lax"} {
		if !strings.Contains(header, want) {
			t.Errorf("Expected %q in cookie header %q", want, header)
		}
	}
}

func TestGetCustomerEmpty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if GetCustomer(c) != "" || GetCommerceToken(c) != "" {
		t.Error("Expected empty values for unauthenticated context")
	}
}
