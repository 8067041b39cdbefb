package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/apperr"
	"github.com/coeurdepaille/matching-service/internal/db"
	"github.com/coeurdepaille/matching-service/internal/repository"
)

// Service implements registration and login. It owns the credential
// records; profile data created at registration lives with the matching
// domain but is written here in the same transaction.
type Service struct {
	appCtx   *app.AppContext
	accounts *repository.AccountRepository
	profiles *repository.ProfileRepository
	tokens   *TokenManager
}

// NewService creates the auth service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, tokens *TokenManager) *Service {
	return &Service{
		appCtx:   appCtx,
		accounts: repository.NewAccountRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		tokens:   tokens,
	}
}

// ProfileInput is the profile payload supplied at registration.
type ProfileInput struct {
	Name       string
	Gender     string
	Role       string
	FarmType   *string
	Location   string
	Bio        string
	Image      string
	Preference string
}

// Session is what a successful register/login hands back to the client.
type Session struct {
	UserID uint64 `json:"user_id"`
	Token  string `json:"token"`
}

// Register creates an account and its profile, then opens a session.
//
// Behavior:
//   - Email, password, name and gender are required.
//   - Duplicate email → conflict.
//   - Account and profile are written in one transaction; a new profile
//     always starts with the "Nouveau" badge.
//
// Example:
//
//	svc.Register(ctx, "marie@ferme.fr", "secret", ProfileInput{Name: "Marie", Gender: "female"})
func (s *Service) Register(ctx context.Context, email, password string, in ProfileInput) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Gender) == "" {
		return nil, apperr.Validation("name and gender are required")
	}

	exists, err := s.accounts.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	if exists {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	badges := []string{"Nouveau"}

	var account db.Account
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account = db.Account{Email: email, PasswordHash: string(hash)}
		if err := repository.NewAccountRepository(tx).Create(ctx, &account); err != nil {
			return err
		}
		profile := db.Profile{
			ID:         account.ID,
			Name:       strings.TrimSpace(in.Name),
			Gender:     in.Gender,
			Role:       in.Role,
			FarmType:   in.FarmType,
			Location:   in.Location,
			Bio:        in.Bio,
			Image:      in.Image,
			Preference: in.Preference,
			Badges:     badges,
		}
		return repository.NewProfileRepository(tx).Create(ctx, &profile)
	})
	if err != nil {
		s.appCtx.Logger.Error("registration failed", "email", email, "err", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user_id", account.ID)
	return &Session{UserID: account.ID, Token: token}, nil
}

// Login verifies credentials and opens a session. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrAuthRequired)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrAuthRequired)
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		s.appCtx.Logger.Warn("failed to record login time", "user_id", account.ID, "err", err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	return &Session{UserID: account.ID, Token: token}, nil
}
