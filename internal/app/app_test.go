package app

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktracker/internal/cache"
	"tasktracker/internal/model"
	"tasktracker/internal/pkg/jwtutil"
	"tasktracker/internal/pkg/passwd"
	"tasktracker/internal/platform/database"
	"tasktracker/internal/repository"
	"tasktracker/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.AccountEvent
	err    error
}

func (p *recordingPublisher) PublishAccountEvent(_ context.Context, event model.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	db        *gorm.DB
	uploadDir string
	auth      *AuthService
	projects  *ProjectService
	tasks     *TaskService
	publisher *recordingPublisher
	revoked   *cache.MemoryRevocationList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(context.Background(), "sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	uploadDir := t.TempDir()
	avatars, err := storage.NewAvatarStore(uploadDir, 1<<20)
	require.NoError(t, err)

	tokens, err := jwtutil.NewService(jwtutil.Config{Secret: "test-secret", Issuer: "tasktracker", TTL: time.Hour})
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	publisher := &recordingPublisher{}
	revoked := cache.NewMemoryRevocationList()

	return &fixture{
		db:        db,
		uploadDir: uploadDir,
		auth:      NewAuthService(userRepo, passwd.NewHasher(bcrypt.MinCost), tokens, revoked, avatars, publisher, nil),
		projects:  NewProjectService(projectRepo),
		tasks:     NewTaskService(taskRepo, projectRepo),
		publisher: publisher,
		revoked:   revoked,
	}
}

func avatarUpload(t *testing.T, name string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("image-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["avatar"][0]
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) register(t *testing.T, username, password string) *AuthResult {
	t.Helper()
	result, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Password: password,
		Email:    username + "@example.com",
		Name:     username,
		Avatar:   avatarUpload(t, username+".png"),
	})
	require.NoError(t, err)
	return result
}

func strPtr(s string) *string { return &s }

func TestRegisterIssuesTokenAndStoresAvatar(t *testing.T) {
	f := newFixture(t)

	result := f.register(t, "alice", "pw1")
	require.NotEmpty(t, result.Token)
	assert.NotEqual(t, "pw1", result.User.PasswordHash)
	assert.FileExists(t, result.User.Avatar)
	assert.Equal(t, []string{model.AccountEventRegistered}, f.publisher.kinds())

	claims, err := f.auth.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, *result.User, mergeTimestamps(claims.User(), *result.User))
}

// mergeTimestamps copies fields that tokens do not carry so snapshots compare.
func mergeTimestamps(snapshot, stored model.User) model.User {
	snapshot.CreatedAt = stored.CreatedAt
	snapshot.UpdatedAt = stored.UpdatedAt
	return snapshot
}

func TestRegisterMissingFieldsRemovesAvatar(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "pw1",
		Avatar:   avatarUpload(t, "alice.png"),
	})
	require.ErrorIs(t, err, ErrMissingFields)
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
}

func TestRegisterWithoutAvatarIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
		Name:     "Alice",
	})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestRegisterDuplicateUsernameRemovesAvatar(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "alice", "pw1")

	_, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "pw2",
		Email:    "other@example.com",
		Name:     "Other",
		Avatar:   avatarUpload(t, "other.png"),
	})
	require.ErrorIs(t, err, ErrUsernameExists)
	assert.Equal(t, []string{filepath.Base(first.User.Avatar)}, uploadedFiles(t, f.uploadDir))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "pw1")

	_, wrongPassword := f.auth.Login(LoginInput{Username: "alice", Password: "nope"})
	_, unknownUser := f.auth.Login(LoginInput{Username: "nobody", Password: "pw1"})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredential)
	require.ErrorIs(t, unknownUser, ErrInvalidCredential)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, err := f.auth.Login(LoginInput{Username: "alice"})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestLoginTokenCarriesSameSnapshotAsRegistration(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "alice", "pw1")

	loggedIn, err := f.auth.Login(LoginInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	a, err := f.auth.Authenticate(context.Background(), registered.Token)
	require.NoError(t, err)
	b, err := f.auth.Authenticate(context.Background(), loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, a.User(), b.User())
}

func TestUpdateCredentialsInvalidatesOldToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")

	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	updated, err := f.auth.UpdateCredentials(ctx, claims, UserPatch{Name: strPtr("Alice2")})
	require.NoError(t, err)
	assert.Equal(t, "Alice2", updated.User.Name)
	assert.Equal(t, "alice@example.com", updated.User.Email)

	_, err = f.auth.Authenticate(ctx, registered.Token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenStale) || errors.Is(err, ErrTokenRevoked))

	fresh, err := f.auth.Authenticate(ctx, updated.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice2", fresh.Name)
	assert.Equal(t, []string{model.AccountEventRegistered, model.AccountEventUpdated}, f.publisher.kinds())
}

func TestUpdateWithUnchangedFieldsStillRevokesOldToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	_, err = f.auth.UpdateCredentials(ctx, claims, UserPatch{})
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, registered.Token)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestUpdateAppliesEmptyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	updated, err := f.auth.UpdateCredentials(ctx, claims, UserPatch{Email: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.User.Email)
	assert.Equal(t, "alice", updated.User.Name)
}

func TestUpdateRejectsEmptyUsernameOrPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	_, err = f.auth.UpdateCredentials(ctx, claims, UserPatch{Username: strPtr("  ")})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.auth.UpdateCredentials(ctx, claims, UserPatch{Password: strPtr("")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdatePasswordAndAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	oldAvatar := registered.User.Avatar
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	updated, err := f.auth.UpdateCredentials(ctx, claims, UserPatch{
		Password: strPtr("pw2"),
		Avatar:   avatarUpload(t, "new.jpg"),
	})
	require.NoError(t, err)

	assert.NoFileExists(t, oldAvatar)
	assert.FileExists(t, updated.User.Avatar)
	assert.Equal(t, []string{filepath.Base(updated.User.Avatar)}, uploadedFiles(t, f.uploadDir))

	_, err = f.auth.Login(LoginInput{Username: "alice", Password: "pw1"})
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = f.auth.Login(LoginInput{Username: "alice", Password: "pw2"})
	require.NoError(t, err)
}

func TestUpdateToTakenUsernameKeepsAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "pw1")
	bob := f.register(t, "bob", "pw1")
	claims, err := f.auth.Authenticate(ctx, bob.Token)
	require.NoError(t, err)

	_, err = f.auth.UpdateCredentials(ctx, claims, UserPatch{
		Username: strPtr("alice"),
		Avatar:   avatarUpload(t, "bob2.png"),
	})
	require.ErrorIs(t, err, ErrUsernameExists)
	assert.FileExists(t, bob.User.Avatar)
	assert.Len(t, uploadedFiles(t, f.uploadDir), 2)

	_, err = f.auth.Authenticate(ctx, bob.Token)
	require.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	project, err := f.projects.Create("Apollo")
	require.NoError(t, err)
	_, err = f.tasks.Create(CreateTaskInput{UserID: claims.UserID, ProjectID: project.ID, Name: "launch"})
	require.NoError(t, err)

	require.NoError(t, f.auth.DeleteAccount(ctx, claims))
	assert.NoFileExists(t, registered.User.Avatar)

	_, err = f.auth.Authenticate(ctx, registered.Token)
	require.ErrorIs(t, err, ErrTokenRevoked)

	tasks, err := f.tasks.List()
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, model.AccountEventDeleted, f.publisher.kinds()[1])
}

func TestDeleteAccountWithoutAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := &model.User{Username: "legacy", Email: "l@example.com", Name: "Legacy", PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(f.db).Create(user))

	claims := &jwtutil.Claims{UserID: user.ID}
	require.NoError(t, f.auth.DeleteAccount(ctx, claims))
	require.ErrorIs(t, f.auth.DeleteAccount(ctx, claims), ErrUserNotFound)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	result := f.register(t, "alice", "pw1")
	assert.NotEmpty(t, result.Token)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, jwtutil.ErrTokenMalformed)
}

func TestCredentialsOmitSecrets(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(context.Background(), registered.Token)
	require.NoError(t, err)

	profile := f.auth.Credentials(claims)
	assert.Equal(t, Profile{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "alice",
		Avatar:   registered.User.Avatar,
	}, profile)
}

type failingIssuer struct {
	*jwtutil.Service
}

func (failingIssuer) Issue(model.User) (string, error) {
	return "", errors.New("signer unavailable")
}

type stuckAvatars struct {
	AvatarStorage
}

func (stuckAvatars) Remove(string) error {
	return errors.New("disk busy")
}

func (f *fixture) authWith(t *testing.T, tokens TokenService, avatars AvatarStorage) *AuthService {
	t.Helper()
	if tokens == nil {
		svc, err := jwtutil.NewService(jwtutil.Config{Secret: "test-secret", Issuer: "tasktracker", TTL: time.Hour})
		require.NoError(t, err)
		tokens = svc
	}
	if avatars == nil {
		store, err := storage.NewAvatarStore(f.uploadDir, 1<<20)
		require.NoError(t, err)
		avatars = store
	}
	return NewAuthService(
		repository.NewUserRepository(f.db),
		passwd.NewHasher(bcrypt.MinCost),
		tokens,
		f.revoked,
		avatars,
		f.publisher,
		nil,
	)
}

func TestRegisterRollsBackWhenTokenIssueFails(t *testing.T) {
	f := newFixture(t)
	base, err := jwtutil.NewService(jwtutil.Config{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)
	auth := f.authWith(t, failingIssuer{base}, nil)

	_, err = auth.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "pw1",
		Email:    "alice@example.com",
		Name:     "alice",
		Avatar:   avatarUpload(t, "alice.png"),
	})
	require.Error(t, err)

	user, err := repository.NewUserRepository(f.db).GetByUsername("alice")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
	assert.Empty(t, f.publisher.kinds())

	f.register(t, "alice", "pw1")
}

func TestDeleteAccountKeepsAvatarWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&model.Task{}))

	require.Error(t, f.auth.DeleteAccount(ctx, claims))
	assert.FileExists(t, registered.User.Avatar)

	user, err := repository.NewUserRepository(f.db).GetByID(claims.UserID)
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestDeleteAccountSucceedsWhenAvatarRemovalFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "alice", "pw1")
	claims, err := f.auth.Authenticate(ctx, registered.Token)
	require.NoError(t, err)

	store, err := storage.NewAvatarStore(f.uploadDir, 1<<20)
	require.NoError(t, err)
	auth := f.authWith(t, nil, stuckAvatars{store})

	require.NoError(t, auth.DeleteAccount(ctx, claims))

	user, err := repository.NewUserRepository(f.db).GetByID(claims.UserID)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.FileExists(t, registered.User.Avatar)
}
