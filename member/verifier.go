package member

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/password"
)

const timingDummyPassword = "timing-equalizer-password"

// Verifier checks login credentials against the member table. Unknown login
// ids and wrong passwords produce the same authcore.ErrCredentialInvalid.
type Verifier struct {
	repo   Repository
	hasher password.Hasher
	log    zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewVerifier(repo Repository, hasher password.Hasher, log zerolog.Logger) *Verifier {
	return &Verifier{repo: repo, hasher: hasher, log: log.With().Str("component", "credential_verifier").Logger()}
}

func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (authcore.Principal, error) {
	if identifier == "" || secret == "" {
		return authcore.Principal{}, authcore.ErrCredentialInvalid
	}

	m, err := v.repo.FindByLoginID(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			v.burnVerify(secret)
			return authcore.Principal{}, authcore.ErrCredentialInvalid
		}
		return authcore.Principal{}, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}

	ok, err := v.hasher.Verify(secret, m.PasswordHash)
	if err != nil {
		v.log.Error().Err(err).Str("login_id", identifier).Msg("stored password hash unreadable")
		return authcore.Principal{}, authcore.ErrCredentialInvalid
	}
	if !ok {
		return authcore.Principal{}, authcore.ErrCredentialInvalid
	}

	v.maybeUpgrade(ctx, m, secret)

	return authcore.Principal{AccountID: m.LoginID, Authorities: authoritiesOf(m)}, nil
}

// Authorities reloads the account's authority list for token reissue. A
// member that no longer exists yields authcore.ErrCredentialInvalid.
func (v *Verifier) Authorities(ctx context.Context, accountID string) ([]string, error) {
	m, err := v.repo.FindByLoginID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, authcore.ErrCredentialInvalid
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	return authoritiesOf(m), nil
}

func authoritiesOf(m *Member) []string {
	if m.Role == "" {
		return []string{DefaultRole}
	}
	return []string{m.Role}
}

// burnVerify spends roughly the cost of a real check so response time does not
// reveal whether the login id exists.
func (v *Verifier) burnVerify(secret string) {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash(timingDummyPassword)
		if err == nil {
			v.dummyHash = h
		}
	})
	if v.dummyHash != "" {
		_, _ = v.hasher.Verify(secret, v.dummyHash)
	}
}

func (v *Verifier) maybeUpgrade(ctx context.Context, m *Member, secret string) {
	up, ok := v.hasher.(password.Upgrader)
	if !ok {
		return
	}
	needs, err := up.NeedsUpgrade(m.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := v.hasher.Hash(secret)
	if err != nil {
		return
	}
	m.PasswordHash = hash
	if err := v.repo.Update(ctx, m); err != nil {
		v.log.Warn().Err(err).Str("login_id", m.LoginID).Msg("password rehash failed")
	}
}
