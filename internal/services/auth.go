package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/lib/jwt"
	"github.com/faceoff-app/backend/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserBanned         = errors.New("user is banned")
	ErrInvalidToken       = errors.New("invalid token")
)

const bcryptCost = 12

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte, role entity.UserRole) (int64, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (entity.User, error)
	UserByID(ctx context.Context, id int64) (entity.User, error)
	SetUserBanned(ctx context.Context, id int64, banned bool) error
	ListUsers(ctx context.Context) ([]entity.User, error)
}

type Auth struct {
	log          *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	tokenSecret  []byte
	tokenTTL     time.Duration
}

func NewAuth(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokenSecret []byte,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		userSaver:    userSaver,
		userProvider: userProvider,
		tokenSecret:  tokenSecret,
		tokenTTL:     tokenTTL,
	}
}

// Register creates a user account and returns a signed token for it.
func (a *Auth) Register(ctx context.Context, email, password string) (string, entity.User, error) {
	const op = "services.Auth.Register"

	if email == "" || password == "" {
		return "", entity.User{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", entity.User{}, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.userSaver.SaveUser(ctx, email, passHash, entity.RoleUser)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExists) {
			return "", entity.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return "", entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := entity.User{ID: id, Email: email, Role: entity.RoleUser}

	token, err := jwt.NewToken(user, a.tokenSecret, a.tokenTTL)
	if err != nil {
		return "", entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user registered", slog.Int64("user_id", id))

	return token, user, nil
}

// Login checks credentials and returns a signed token. A banned user is
// rejected even with a correct password.
func (a *Auth) Login(ctx context.Context, email, password string) (string, entity.User, error) {
	const op = "services.Auth.Login"

	if email == "" || password == "" {
		return "", entity.User{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := a.userProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return "", entity.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if user.Banned {
		return "", entity.User{}, fmt.Errorf("%s: %w", op, ErrUserBanned)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		a.log.Info("invalid credentials", slog.String("email", email))
		return "", entity.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := jwt.NewToken(user, a.tokenSecret, a.tokenTTL)
	if err != nil {
		return "", entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, user, nil
}

// VerifyToken turns a bearer credential into a verified identity. The user
// row is re-read so bans and role changes take effect immediately.
func (a *Auth) VerifyToken(ctx context.Context, token string) (entity.Identity, error) {
	const op = "services.Auth.VerifyToken"

	claims, err := jwt.ParseToken(token, a.tokenSecret)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := a.userProvider.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return entity.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		return entity.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if user.Banned {
		return entity.Identity{}, fmt.Errorf("%s: %w", op, ErrUserBanned)
	}

	return entity.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Banned: user.Banned,
	}, nil
}

func (a *Auth) Profile(ctx context.Context, userID int64) (entity.User, error) {
	const op = "services.Auth.Profile"

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) SetUserBanned(ctx context.Context, userID int64, banned bool) (entity.User, error) {
	const op = "services.Auth.SetUserBanned"

	if err := a.userProvider.SetUserBanned(ctx, userID, banned); err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		return entity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user ban status changed", slog.Int64("user_id", userID), slog.Bool("banned", banned))

	return user, nil
}

func (a *Auth) Users(ctx context.Context) ([]entity.User, error) {
	const op = "services.Auth.Users"

	users, err := a.userProvider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
