package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userUC "github.com/khoahotran/devconnector/internal/application/usecase/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

type UserHandler struct {
	uploadAvatarUseCase *userUC.UploadAvatarUseCase
	logger              logger.Logger
}

func NewUserHandler(uploadUC *userUC.UploadAvatarUseCase, log logger.Logger) *UserHandler {
	return &UserHandler{uploadAvatarUseCase: uploadUC, logger: log}
}

// UploadAvatar handles PUT /api/users/avatar with a multipart "file" field.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.NewValidation(apperror.FieldError{Msg: "Image file is required", Param: "file", Location: "body"}))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("failed to open uploaded file", err))
		return
	}
	defer file.Close()

	u, err := h.uploadAvatarUseCase.Execute(c.Request.Context(), userUC.UploadAvatarInput{
		UserID: userID,
		File:   file,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ToUserDTO(u))
}
