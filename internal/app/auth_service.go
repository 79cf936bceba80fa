package app

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"tasktracker/internal/cache"
	"tasktracker/internal/model"
	"tasktracker/internal/pkg/jwtutil"
	"tasktracker/internal/pkg/passwd"
	"tasktracker/internal/repository"
)

type AvatarStorage interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(path string) error
}

type TokenService interface {
	Issue(user model.User) (string, error)
	Verify(token string) (*jwtutil.Claims, error)
}

type AccountEventPublisher interface {
	PublishAccountEvent(ctx context.Context, event model.AccountEvent) error
}

type AuthService struct {
	userRepo  *repository.UserRepository
	hasher    *passwd.Hasher
	tokens    TokenService
	revoked   cache.RevocationList
	avatars   AvatarStorage
	publisher AccountEventPublisher
	logger    *slog.Logger
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	Name     string
	Avatar   *multipart.FileHeader
}

type LoginInput struct {
	Username string
	Password string
}

// UserPatch carries only the fields the caller sent. A nil field keeps the
// stored value; a non-nil field replaces it, even when empty.
type UserPatch struct {
	Username *string
	Password *string
	Email    *string
	Name     *string
	Avatar   *multipart.FileHeader
}

type AuthResult struct {
	Token string
	User  *model.User
}

type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

func NewAuthService(
	userRepo *repository.UserRepository,
	hasher *passwd.Hasher,
	tokens TokenService,
	revoked cache.RevocationList,
	avatars AvatarStorage,
	publisher AccountEventPublisher,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		revoked:   revoked,
		avatars:   avatars,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	var avatarPath string
	if input.Avatar != nil {
		path, err := s.avatars.Save(input.Avatar)
		if err != nil {
			return nil, err
		}
		avatarPath = path
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if username == "" || input.Password == "" || email == "" || name == "" || avatarPath == "" {
		s.discardAvatar(avatarPath)
		return nil, ErrMissingFields
	}

	existing, err := s.userRepo.GetByUsername(username)
	if err != nil {
		s.discardAvatar(avatarPath)
		return nil, err
	}
	if existing != nil {
		s.discardAvatar(avatarPath)
		return nil, ErrUsernameExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.discardAvatar(avatarPath)
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Name:         name,
		Avatar:       avatarPath,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		s.discardAvatar(avatarPath)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	token, err := s.tokens.Issue(*user)
	if err != nil {
		if _, delErr := s.userRepo.DeleteWithTasks(user.ID); delErr != nil {
			s.logger.Warn("roll back registration failed", "user_id", user.ID, "error", delErr)
		}
		s.discardAvatar(avatarPath)
		return nil, err
	}
	s.publish(ctx, user, model.AccountEventRegistered)
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}

	token, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate accepts a bearer token only while its signature verifies, it
// has not been revoked, and the stored user still equals the snapshot it
// carries field for field.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwtutil.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.userRepo.FindExact(claims.User())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenStale
	}
	return claims, nil
}

func (s *AuthService) Credentials(claims *jwtutil.Claims) Profile {
	return Profile{
		Username: claims.Username,
		Email:    claims.Email,
		Name:     claims.Name,
		Avatar:   claims.Avatar,
	}
}

func (s *AuthService) UpdateCredentials(ctx context.Context, claims *jwtutil.Claims, patch UserPatch) (*AuthResult, error) {
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return nil, ErrInvalidInput
	}
	if patch.Password != nil && *patch.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if patch.Username != nil {
		user.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		user.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	oldAvatar := user.Avatar
	if patch.Avatar != nil {
		path, err := s.avatars.Save(patch.Avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = path
	}

	if err := s.userRepo.Update(user); err != nil {
		if user.Avatar != oldAvatar {
			s.discardAvatar(user.Avatar)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	if user.Avatar != oldAvatar {
		s.discardAvatar(oldAvatar)
	}

	s.revoke(ctx, claims)
	token, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, user, model.AccountEventUpdated)
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, claims *jwtutil.Claims) error {
	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	deleted, err := s.userRepo.DeleteWithTasks(user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	s.discardAvatar(user.Avatar)

	s.revoke(ctx, claims)
	s.publish(ctx, user, model.AccountEventDeleted)
	return nil
}

func (s *AuthService) revoke(ctx context.Context, claims *jwtutil.Claims) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("revoke token failed", "user_id", claims.UserID, "error", err)
	}
}

func (s *AuthService) discardAvatar(path string) {
	if err := s.avatars.Remove(path); err != nil {
		s.logger.Warn("remove avatar failed", "path", path, "error", err)
	}
}

func (s *AuthService) publish(ctx context.Context, user *model.User, kind string) {
	if s.publisher == nil {
		return
	}
	event := model.AccountEvent{
		UserID:     user.ID,
		Username:   user.Username,
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishAccountEvent(ctx, event); err != nil {
		s.logger.Warn("publish account event failed", "user_id", user.ID, "kind", kind, "error", err)
	}
}
