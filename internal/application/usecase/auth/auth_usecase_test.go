package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/devconnector/adapters/persistence/memory"
	authUC "github.com/khoahotran/devconnector/internal/application/usecase/auth"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/auth"
	"github.com/khoahotran/devconnector/pkg/logger"
)

func newUseCases() (*authUC.RegisterUseCase, *authUC.LoginUseCase, *authUC.CurrentUserUseCase, *auth.JWTService) {
	store := memory.NewStore()
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	log := logger.NewNop()
	return authUC.NewRegisterUseCase(store.Users(), jwtSvc, log),
		authUC.NewLoginUseCase(store.Users(), jwtSvc, log),
		authUC.NewCurrentUserUseCase(store.Users()),
		jwtSvc
}

func TestRegister_IssuesTokenForNewUser(t *testing.T) {
	register, _, current, jwtSvc := newUseCases()
	ctx := context.Background()

	out, err := register.Execute(ctx, authUC.RegisterInput{Name: "Jane", Email: "Jane@Example.com", Password: "secret1"})
	require.NoError(t, err)

	identity, err := jwtSvc.Verify(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.UserID, identity.UserID)

	u, err := current.Execute(ctx, identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, user.GravatarURL("jane@example.com"), u.Avatar)
	assert.NotEqual(t, "secret1", u.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	register, _, _, _ := newUseCases()
	ctx := context.Background()

	_, err := register.Execute(ctx, authUC.RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = register.Execute(ctx, authUC.RegisterInput{Name: "Jane 2", Email: " JANE@example.com", Password: "secret2"})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, authUC.MsgUserExists, appErr.Message)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	register, login, _, jwtSvc := newUseCases()
	ctx := context.Background()

	reg, err := register.Execute(ctx, authUC.RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)

	out, err := login.Execute(ctx, authUC.LoginInput{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	identity, err := jwtSvc.Verify(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, identity.UserID)

	for _, in := range []authUC.LoginInput{
		{Email: "jane@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		_, err := login.Execute(ctx, in)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, authUC.MsgInvalidCredentials, appErr.Message)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	}
}
