package main

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// bcrypt ignores everything past 72 bytes and newer versions refuse it.
const maxPasswordBytes = 72

type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailAndRole(ctx context.Context, email, role string) (*User, error)
}

type AuthService struct {
	users      UserStore
	tokens     *TokenIssuer
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(users UserStore, tokens *TokenIssuer, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log.Named("auth"),
	}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResult struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (UserProfile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)

	switch {
	case in.Name == "":
		return UserProfile{}, missingField("name")
	case in.Email == "":
		return UserProfile{}, missingField("email")
	case in.Password == "":
		return UserProfile{}, missingField("password")
	case len(in.Password) > maxPasswordBytes:
		return UserProfile{}, &ValidationError{Field: "password", Msg: "password must be at most 72 bytes"}
	}
	if in.Role == "" {
		in.Role = RoleCustomer
	}
	if in.Role != RoleCustomer && in.Role != RoleAdmin {
		return UserProfile{}, &ValidationError{Field: "role", Msg: "role must be admin or customer"}
	}

	user, err := s.createUser(ctx, in)
	if err != nil {
		return UserProfile{}, err
	}
	s.log.Info("user signed up", zap.String("userID", user.ID.Hex()), zap.String("role", user.Role))
	return user.Profile(), nil
}

func (s *AuthService) createUser(ctx context.Context, in SignupInput) (*User, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	hashed, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hashed,
		Role:     in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := normalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	if email == "" {
		return LoginResult{}, missingField("email")
	}
	if in.Password == "" {
		return LoginResult{}, missingField("password")
	}
	if role == "" {
		role = RoleCustomer
	}

	user, err := s.users.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !CheckPassword(user.Password, in.Password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	profile := user.Profile()
	token, err := s.tokens.Issue(profile)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: profile, Token: token}, nil
}
