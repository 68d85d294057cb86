package user

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/devconnector/adapters/persistence/memory"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/apperror"
	"github.com/khoahotran/devconnector/pkg/logger"
)

type fakeUploader struct {
	folder, publicID string
	body             string
	deleted          chan string
}

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, folder, publicID string) (string, error) {
	b, _ := io.ReadAll(file)
	f.body, f.folder, f.publicID = string(b), folder, publicID
	return "https://cdn.example.com/" + folder + "/" + publicID + ".png", nil
}

func (f *fakeUploader) Delete(_ context.Context, publicID string) error {
	f.deleted <- publicID
	return nil
}

func TestUploadAvatar(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	u := &user.User{ID: uuid.New(), Email: "a@example.com"}
	require.NoError(t, store.Users().Create(ctx, u))

	up := &fakeUploader{deleted: make(chan string, 1)}
	uc := NewUploadAvatarUseCase(store.Users(), up, logger.NewNop())

	got, err := uc.Execute(ctx, UploadAvatarInput{UserID: u.ID, File: strings.NewReader("png-bytes")})
	require.NoError(t, err)

	assert.Equal(t, "png-bytes", up.body)
	assert.Equal(t, "users/"+u.ID.String(), up.folder)
	assert.Equal(t, "https://cdn.example.com/users/"+u.ID.String()+"/avatar.png", got.Avatar)
}

func TestUploadAvatar_UnknownUserCleansUp(t *testing.T) {
	store := memory.NewStore()
	up := &fakeUploader{deleted: make(chan string, 1)}
	uc := NewUploadAvatarUseCase(store.Users(), up, logger.NewNop())
	id := uuid.New()

	_, err := uc.Execute(context.Background(), UploadAvatarInput{UserID: id, File: strings.NewReader("x")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "users/"+id.String()+"/avatar", <-up.deleted)
}
