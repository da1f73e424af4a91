package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/contentshare/authcore/password"
)

// Service implements registration and profile maintenance.
type Service struct {
	repo   Repository
	hasher password.Hasher
	log    zerolog.Logger
}

func NewService(repo Repository, hasher password.Hasher, log zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, log: log.With().Str("component", "member").Logger()}
}

// Join registers a member and returns its id. An existing login id yields
// ErrDuplicateLoginID.
func (s *Service) Join(ctx context.Context, req JoinRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	exists, err := s.repo.ExistsByLoginID(ctx, req.LoginID)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrDuplicateLoginID
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	m := &Member{
		LoginID:      req.LoginID,
		PasswordHash: hash,
		Username:     req.Username,
		Gender:       req.Gender,
		Age:          *req.Age,
		Role:         DefaultRole,
	}
	id, err := s.repo.Create(ctx, m)
	if err != nil {
		return 0, err
	}

	s.log.Info().Str("login_id", m.LoginID).Int64("member_id", id).Msg("member joined")
	return id, nil
}

// Profile returns the public view of loginID.
func (s *Service) Profile(ctx context.Context, loginID string) (Profile, error) {
	m, err := s.repo.FindByLoginID(ctx, loginID)
	if err != nil {
		return Profile{}, err
	}
	return m.Profile(), nil
}

// Update applies req to loginID. A new password equal to the current one is
// ignored.
func (s *Service) Update(ctx context.Context, loginID string, req UpdateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	m, err := s.repo.FindByLoginID(ctx, loginID)
	if err != nil {
		return err
	}

	if req.NewPassword != nil && *req.NewPassword != "" {
		same, err := s.hasher.Verify(*req.NewPassword, m.PasswordHash)
		if err != nil && !errors.Is(err, password.ErrUnsupportedHash) {
			return fmt.Errorf("verify password: %w", err)
		}
		if !same {
			hash, err := s.hasher.Hash(*req.NewPassword)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			m.PasswordHash = hash
		}
	}
	if req.Username != nil {
		m.Username = *req.Username
	}
	if req.Gender != nil {
		m.Gender = *req.Gender
	}
	if req.Age != nil {
		m.Age = *req.Age
	}

	return s.repo.Update(ctx, m)
}
