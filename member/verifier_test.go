package member

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentshare/authcore"
)

func seedMember(t *testing.T, repo *fakeRepo, hash string) {
	t.Helper()
	_, err := repo.Create(context.Background(), &Member{
		LoginID: "alice01", PasswordHash: hash, Username: "Alice", Gender: GenderFemale, Age: 25, Role: DefaultRole,
	})
	require.NoError(t, err)
}

func TestVerifierAcceptsCorrectPassword(t *testing.T) {
	repo := newFakeRepo()
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("password!1234")
	require.NoError(t, err)
	seedMember(t, repo, hash)

	p, err := NewVerifier(repo, hasher, zerolog.Nop()).Verify(context.Background(), "alice01", "password!1234")
	require.NoError(t, err)
	assert.Equal(t, authcore.Principal{AccountID: "alice01", Authorities: []string{"ROLE_USER"}}, p)
	assert.Equal(t, 0, repo.updates, "fresh argon2 hash must not be rewritten")
}

func TestVerifierSameErrorForUnknownAndWrong(t *testing.T) {
	repo := newFakeRepo()
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("password!1234")
	require.NoError(t, err)
	seedMember(t, repo, hash)
	v := NewVerifier(repo, hasher, zerolog.Nop())

	_, errWrong := v.Verify(context.Background(), "alice01", "wrong-password")
	_, errUnknown := v.Verify(context.Background(), "nobody01", "password!1234")
	_, errEmpty := v.Verify(context.Background(), "", "")

	assert.ErrorIs(t, errWrong, authcore.ErrCredentialInvalid)
	assert.ErrorIs(t, errUnknown, authcore.ErrCredentialInvalid)
	assert.ErrorIs(t, errEmpty, authcore.ErrCredentialInvalid)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestVerifierUpgradesLegacyBcryptHash(t *testing.T) {
	repo := newFakeRepo()
	legacy, err := bcrypt.GenerateFromPassword([]byte("password!1234"), bcrypt.MinCost)
	require.NoError(t, err)
	seedMember(t, repo, string(legacy))

	_, err = NewVerifier(repo, newTestHasher(t), zerolog.Nop()).Verify(context.Background(), "alice01", "password!1234")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updates)
	assert.Contains(t, repo.byLogin["alice01"].PasswordHash, "$argon2id$")
}

func TestVerifierRepositoryFailureIsInfrastructure(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = errors.New("db down")

	_, err := NewVerifier(repo, newTestHasher(t), zerolog.Nop()).Verify(context.Background(), "alice01", "password!1234")
	assert.ErrorIs(t, err, authcore.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, authcore.ErrCredentialInvalid)
}

func TestVerifierAuthoritiesForReissue(t *testing.T) {
	repo := newFakeRepo()
	seedMember(t, repo, "unused")
	repo.byLogin["alice01"].Role = "ROLE_ADMIN"
	v := NewVerifier(repo, newTestHasher(t), zerolog.Nop())

	auth, err := v.Authorities(context.Background(), "alice01")
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_ADMIN"}, auth)

	_, err = v.Authorities(context.Background(), "ghost01")
	assert.ErrorIs(t, err, authcore.ErrCredentialInvalid)

	repo.findErr = errors.New("db down")
	_, err = v.Authorities(context.Background(), "alice01")
	assert.Equal(t, authcore.KindInfrastructure, authcore.KindOf(err))
}
