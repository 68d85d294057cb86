package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/auth"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const (
	GinContextKeyIdentity = "identity"

	// HeaderAuthToken carries the raw token, without a scheme prefix.
	HeaderAuthToken = "x-auth-token"

	MsgNoToken      = "No Token,Authorization denied"
	MsgInvalidToken = "Invalid Token,Authorization denied"
)

// AuthMiddleware admits a request only when it carries a valid token. The
// verified identity is stored on the context for the handlers behind it.
func AuthMiddleware(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := jwtSvc.Verify(c.GetHeader(HeaderAuthToken))
		if err != nil {
			if errors.Is(err, auth.ErrMissingCredential) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apperror.Body(MsgNoToken))
				return
			}
			log.Warn("Rejected invalid token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperror.Body(MsgInvalidToken))
			return
		}

		c.Set(GinContextKeyIdentity, identity)

		c.Next()
	}
}

func GetIdentityFromGinContext(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(GinContextKeyIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

// ErrorMiddleware renders the last error a handler attached with c.Error.
// Server errors are logged with their cause and answered with a generic body.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, validationErr.ToJSON())
			return
		}

		status := apperror.ToHTTPStatus(err)
		var appErr *apperror.AppError
		if status >= http.StatusInternalServerError || !errors.As(err, &appErr) {
			log.Error("Request failed", err,
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusInternalServerError, apperror.Body(apperror.ServerErrorMessage))
			return
		}

		c.JSON(status, appErr.ToJSON())
	}
}

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
