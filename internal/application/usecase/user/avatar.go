package user

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/internal/application/service"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

type UploadAvatarUseCase struct {
	userRepo user.Repository
	uploader service.Uploader
	logger   logger.Logger
}

func NewUploadAvatarUseCase(repo user.Repository, uploader service.Uploader, log logger.Logger) *UploadAvatarUseCase {
	return &UploadAvatarUseCase{userRepo: repo, uploader: uploader, logger: log}
}

type UploadAvatarInput struct {
	UserID uuid.UUID
	File   io.Reader
}

// Execute uploads the image and points the account avatar at it. When the
// account update fails the uploaded asset is removed again in the background.
func (uc *UploadAvatarUseCase) Execute(ctx context.Context, input UploadAvatarInput) (*user.User, error) {
	folder := fmt.Sprintf("users/%s", input.UserID.String())
	publicID := "avatar"

	url, err := uc.uploader.Upload(ctx, input.File, folder, publicID)
	if err != nil {
		return nil, apperror.NewInternal("failed to upload avatar", err)
	}

	if err := uc.userRepo.UpdateAvatar(ctx, input.UserID, url); err != nil {
		go func() {
			if delErr := uc.uploader.Delete(context.Background(), folder+"/"+publicID); delErr != nil {
				uc.logger.Error("Failed to clean up orphan avatar", delErr, zap.String("user_id", input.UserID.String()))
			}
		}()
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperror.NewNotFound("User", input.UserID.String())
		}
		return nil, err
	}

	return uc.userRepo.FindByID(ctx, input.UserID)
}
