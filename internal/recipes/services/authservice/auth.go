package authservice

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/internal/pkg/jwtauth"
	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/usercache"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/userrepo"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 5
	maxFieldLen    = 255
)

var (
	ErrUnauthenticated    = errors.New("authentication credentials were not provided or are invalid")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
)

type AuthService struct {
	userRepo  Repository
	userCache Cache
	cfg       config.Auth
	lg        logger.Logger
}

type Repository interface {
	CreateUser(context.Context, models.User) (int64, error)
	GetUserByEmail(context.Context, string) (models.User, error)
	GetUserByID(context.Context, int64) (models.User, error)
	UpdateUser(context.Context, models.User) error
	TouchLastLogin(context.Context, int64) error
}

type Cache interface {
	GetUser(context.Context, int64) (models.User, error)
	SetUser(context.Context, models.User) error
	DeleteUser(context.Context, int64) error
}

// New wires the service. A nil cache disables caching.
func New(userRepo Repository, userCache Cache, cfg config.Auth, lg logger.Logger) *AuthService {
	if userCache == nil {
		userCache = nopCache{}
	}

	return &AuthService{
		userRepo:  userRepo,
		userCache: userCache,
		cfg:       cfg,
		lg:        lg,
	}
}

func (as *AuthService) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	ve := validate.Errors{}
	validateEmail(ve, req.Email)
	validatePassword(ve, req.Password)
	ve.Text("name", req.Name, true, maxFieldLen)

	if err := ve.Err(); err != nil {
		return models.User{}, err
	}

	return as.createUser(ctx, models.User{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: true,
	}, req.Password)
}

// CreateSuperuser creates a staff superuser. Used from the command line.
func (as *AuthService) CreateSuperuser(ctx context.Context, email, password string) (models.User, error) {
	ve := validate.Errors{}
	validateEmail(ve, email)
	validatePassword(ve, password)

	if err := ve.Err(); err != nil {
		return models.User{}, err
	}

	return as.createUser(ctx, models.User{
		Email:       email,
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
	}, password)
}

func (as *AuthService) createUser(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("generate from password error: %w", err)
	}

	u.Email = models.NormalizeEmail(u.Email)
	u.PasswordHash = string(hash)

	id, err := as.userRepo.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, userrepo.ErrAlreadyExists) {
			return models.User{}, validate.Errors{"email": {"user with this email already exists."}}
		}

		return models.User{}, fmt.Errorf("create user error: %w", err)
	}

	u.ID = id

	return u, nil
}

func (as *AuthService) Login(ctx context.Context, req LoginRequest) (string, error) {
	ve := validate.Errors{}
	ve.Text("email", req.Email, true, 0)
	ve.Text("password", req.Password, true, 0)

	if err := ve.Err(); err != nil {
		return "", err
	}

	u, err := as.userRepo.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return "", ErrInvalidCredentials
		}

		return "", fmt.Errorf("get user error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if !u.IsActive {
		return "", ErrInvalidCredentials
	}

	token, err := jwtauth.GetToken(u, as.cfg.TTL, as.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("can't get token error: %w", err)
	}

	if err := as.userRepo.TouchLastLogin(ctx, u.ID); err != nil {
		as.lg.Errorf("touch last login error: %s", err.Error())
	}

	return token, nil
}

// Authenticate resolves a token to an active user.
func (as *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}

	id, err := jwtauth.ValidateToken(token, as.cfg.Secret)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	u, err := as.userCache.GetUser(ctx, id)
	if err == nil {
		as.lg.Debugf("user cache hit %d", id)

		return activeOnly(u)
	}

	as.lg.Debugf("user cache missed %d: %s", id, err.Error())

	u, err = as.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return models.User{}, ErrUnauthenticated
		}

		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	u.PasswordHash = ""

	if err := as.userCache.SetUser(ctx, u); err != nil {
		as.lg.Errorf("set user cache error: %s", err.Error())
	}

	return activeOnly(u)
}

// UpdateUser applies req to the caller's account. With partial unset every
// field must be present.
func (as *AuthService) UpdateUser(ctx context.Context, caller models.User, req UpdateUserRequest,
	partial bool,
) (models.User, error) {
	ve := validate.Errors{}

	if !partial {
		if req.Email == nil {
			ve.Missing("email")
		}

		if req.Password == nil {
			ve.Missing("password")
		}

		if req.Name == nil {
			ve.Missing("name")
		}
	}

	if req.Email != nil {
		validateEmail(ve, *req.Email)
	}

	if req.Password != nil {
		validatePassword(ve, *req.Password)
	}

	if req.Name != nil {
		ve.Text("name", *req.Name, true, maxFieldLen)
	}

	if err := ve.Err(); err != nil {
		return models.User{}, err
	}

	u, err := as.userRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("get user error: %w", err)
	}

	if req.Email != nil {
		u.Email = models.NormalizeEmail(*req.Email)
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("generate from password error: %w", err)
		}

		u.PasswordHash = string(hash)
	}

	if err := as.userRepo.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrAlreadyExists) {
			return models.User{}, validate.Errors{"email": {"user with this email already exists."}}
		}

		return models.User{}, fmt.Errorf("update user error: %w", err)
	}

	if err := as.userCache.DeleteUser(ctx, u.ID); err != nil {
		as.lg.Errorf("delete user cache error: %s", err.Error())
	}

	u.PasswordHash = ""

	return u, nil
}

func activeOnly(u models.User) (models.User, error) {
	if !u.IsActive {
		return models.User{}, ErrUnauthenticated
	}

	return u, nil
}

func validateEmail(ve validate.Errors, email string) {
	ve.Text("email", email, true, maxFieldLen)

	if _, ok := ve["email"]; ok {
		return
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		ve.Add("email", "Enter a valid email address.")
	}
}

func validatePassword(ve validate.Errors, password string) {
	ve.Text("password", password, true, 0)

	if _, ok := ve["password"]; ok {
		return
	}

	if len([]rune(password)) < minPasswordLen {
		ve.Add("password", "Ensure this field has at least 5 characters.")
	}
}

type nopCache struct{}

func (nopCache) GetUser(context.Context, int64) (models.User, error) {
	return models.User{}, usercache.ErrMiss
}

func (nopCache) SetUser(context.Context, models.User) error {
	return nil
}

func (nopCache) DeleteUser(context.Context, int64) error {
	return nil
}
