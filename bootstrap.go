package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const adminName = "Admin"

// seedAdmin creates the administrator account unless a user with the
// reserved admin email already exists. Safe to run on every start.
func seedAdmin(ctx context.Context, auth *AuthService, email, password string) error {
	email = normalizeEmail(email)
	_, err := auth.createUser(ctx, SignupInput{
		Name:     adminName,
		Email:    email,
		Password: password,
		Role:     RoleAdmin,
	})
	switch {
	case err == nil:
		auth.log.Info("default admin created", zap.String("email", email))
		return nil
	case errors.Is(err, ErrConflict):
		auth.log.Debug("default admin present", zap.String("email", email))
		return nil
	default:
		return err
	}
}
