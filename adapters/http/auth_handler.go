package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/devconnector/internal/application/usecase/auth"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

type AuthHandler struct {
	registerUseCase    *auth.RegisterUseCase
	loginUseCase       *auth.LoginUseCase
	currentUserUseCase *auth.CurrentUserUseCase
	logger             logger.Logger
}

func NewAuthHandler(registerUC *auth.RegisterUseCase, loginUC *auth.LoginUseCase, currentUC *auth.CurrentUserUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		registerUseCase:    registerUC,
		loginUseCase:       loginUC,
		currentUserUseCase: currentUC,
		logger:             log,
	}
}

// Register handles POST /api/users.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindingError(err, registerMessages))
		return
	}

	output, err := h.registerUseCase.Execute(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: output.AccessToken})
}

// Login handles POST /api/auth.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindingError(err, loginMessages))
		return
	}

	output, err := h.loginUseCase.Execute(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: output.AccessToken})
}

// Me handles GET /api/auth.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := GetIdentityFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("identity not found in context", nil))
		return
	}

	u, err := h.currentUserUseCase.Execute(c.Request.Context(), identity.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToUserDTO(u))
}
