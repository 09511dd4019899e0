package service

import (
	"context"
	"fmt"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/util"
	"student_forms/pkg/logger"

	"go.uber.org/zap"
)

// UserRegistrar registers a student with the upstream service.
type UserRegistrar interface {
	RegisterUser(ctx context.Context, user model.UserData) error
}

type AuthService struct {
	Registrar UserRegistrar
	Sessions  repository.SessionStore
	Forms     *FormService
}

func NewAuthService(registrar UserRegistrar, sessions repository.SessionStore, forms *FormService) *AuthService {
	return &AuthService{
		Registrar: registrar,
		Sessions:  sessions,
		Forms:     forms,
	}
}

// Login registers the student and, on success, stores roll number and name
// for the session as entered, replacing whatever was stored before. Only
// empty values are rejected. Any form runtime
// left over from an earlier login is discarded.
func (s *AuthService) Login(ctx context.Context, sessionID string, user model.UserData) error {
	if user.RollNumber == "" || user.Name == "" {
		return util.ErrMissingCredentials
	}

	if err := s.Registrar.RegisterUser(ctx, user); err != nil {
		logger.Log.Warn("User registration failed", zap.String("roll_number", user.RollNumber), zap.Error(err))
		return fmt.Errorf("%w: %v", util.ErrRegistrationFailed, err)
	}

	store := repository.Scope(s.Sessions, sessionID)
	if err := store.Set(ctx, util.KeyRollNumber, user.RollNumber); err != nil {
		return err
	}
	if err := store.Set(ctx, util.KeyUserName, user.Name); err != nil {
		return err
	}

	if s.Forms != nil {
		s.Forms.Discard(sessionID)
	}
	logger.Log.Info("Student logged in", zap.String("roll_number", user.RollNumber))
	return nil
}

// CurrentUser returns the identity stored for the session, if any.
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (model.UserData, bool, error) {
	store := repository.Scope(s.Sessions, sessionID)
	roll, ok, err := store.Get(ctx, util.KeyRollNumber)
	if err != nil || !ok {
		return model.UserData{}, false, err
	}
	name, _, err := store.Get(ctx, util.KeyUserName)
	if err != nil {
		return model.UserData{}, false, err
	}
	return model.UserData{RollNumber: roll, Name: name}, true, nil
}
