package services

import (
	"context"
	"errors"

	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

var (
	ErrUsernameTaken      = database.ErrUsernameTaken
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserStore is the account persistence used by AccountService.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionIssuer mints and revokes bearer tokens.
type SessionIssuer interface {
	Create(ctx context.Context, userID string) (string, error)
	Invalidate(ctx context.Context, sessionToken string) error
}

// AccountService is the self-hosted identity provider: username and
// password accounts that sign in to a Redis session.
type AccountService struct {
	users    UserStore
	sessions SessionIssuer
}

func NewAccountService(users UserStore, sessions SessionIssuer) *AccountService {
	return &AccountService{users: users, sessions: sessions}
}

// Signup creates an account and signs it in.
func (a *AccountService) Signup(ctx context.Context, username, password string) (*models.User, string, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{Username: utils.NormalizeUsername(username), PasswordHash: hashedPassword}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", storeFailure("create user", err)
	}

	token, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", storeFailure("create session", err)
	}
	return user, token, nil
}

// Signin verifies credentials and returns a fresh session token. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (a *AccountService) Signin(ctx context.Context, username, password string) (*models.User, string, error) {
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := a.users.FindUserByUsername(ctx, utils.NormalizeUsername(username))
	if err != nil {
		return nil, "", storeFailure("find user", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", storeFailure("create session", err)
	}
	return user, token, nil
}

// Signout revokes the session behind token.
func (a *AccountService) Signout(ctx context.Context, token string) error {
	if err := a.sessions.Invalidate(ctx, token); err != nil {
		return storeFailure("invalidate session", err)
	}
	return nil
}

// Me returns the signed-in user's profile.
func (a *AccountService) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, storeFailure("find user", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}
