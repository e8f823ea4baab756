package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

// respondError writes err as {"error", "code"}. An expired commerce session
// also clears the cookie and tells the client where to sign in again.
func respondError(c *gin.Context, auth *config.AuthConfig, err error) {
	e := apperr.As(err)
	status := apperr.HTTPStatus(e.Kind)
	middleware.SetErrorCode(c, e.Code)

	body := gin.H{"error": apperr.Public(e), "code": e.Code}
	switch e.Kind {
	case apperr.KindInternal:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		body["error"] = "Internal server error"
	case apperr.KindSessionExpired:
		middleware.ClearSessionCookie(c, auth)
		body["redirect"] = auth.SignInPath
	}

	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	middleware.SetErrorCode(c, apperr.CodeValidation)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": apperr.CodeValidation})
}

// bindOptionalJSON binds a request body that may be left out. A missing body
// is not an error; a malformed one is.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// requestLocale picks the contract locale: an explicit value, then the
// first Accept-Language tag.
func requestLocale(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if q := c.Query("locale"); q != "" {
		return q
	}
	lang := c.GetHeader("Accept-Language")
	for i, r := range lang {
		if r == ',' || r == ';' {
			return lang[:i]
		}
	}
	return lang
}
