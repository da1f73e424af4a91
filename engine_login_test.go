package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/contentshare/authcore/refresh"
)

func TestLoginIssuesPairAndStoresRefresh(t *testing.T) {
	store := refresh.NewMemoryStore(refresh.DefaultTTL)
	e := buildEngine(t, store)

	pair := mustLogin(t, e, "alice", "pw")
	if pair.GrantType != "Bearer" {
		t.Fatalf("expected Bearer grant type, got %q", pair.GrantType)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("unexpected pair %+v", pair)
	}

	stored, err := store.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get stored refresh: %v", err)
	}
	if stored != pair.RefreshToken {
		t.Fatal("stored record must equal the issued refresh token")
	}

	p, err := e.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.AccountID != "alice" || !p.HasAuthority("ROLE_USER") {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestLoginSameErrorForUnknownAndWrongSecret(t *testing.T) {
	store := refresh.NewMemoryStore(refresh.DefaultTTL)
	e := buildEngine(t, store)

	_, errWrong := e.Login(context.Background(), "alice", "nope")
	_, errUnknown := e.Login(context.Background(), "mallory", "pw")

	for _, err := range []error{errWrong, errUnknown} {
		if !errors.Is(err, ErrCredentialInvalid) {
			t.Fatalf("expected ErrCredentialInvalid, got %v", err)
		}
		if KindOf(err) != KindCredentialInvalid {
			t.Fatalf("expected credential kind, got %s", KindOf(err))
		}
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("errors must be indistinguishable: %q vs %q", errWrong, errUnknown)
	}
	if store.Len() != 0 {
		t.Fatalf("failed logins must not store records, got %d", store.Len())
	}
}

func TestLoginOverwriteInvalidatesPreviousRefresh(t *testing.T) {
	for name, store := range map[string]refresh.Store{
		"swap":       refresh.NewMemoryStore(refresh.DefaultTTL),
		"sequential": plainStore{refresh.NewMemoryStore(refresh.DefaultTTL)},
	} {
		t.Run(name, func(t *testing.T) {
			e := buildEngine(t, store)

			first := mustLogin(t, e, "alice", "pw")
			second := mustLogin(t, e, "alice", "pw")
			if first.RefreshToken == second.RefreshToken {
				t.Fatal("second login must mint a new refresh token")
			}

			_, err := e.Reissue(context.Background(), first.RefreshToken)
			if k := KindOf(err); k != KindTokenMismatch && k != KindTokenNotFound {
				t.Fatalf("expected mismatch or not found, got %v", err)
			}
		})
	}
}

func TestLoginStoreFailureIsInfrastructure(t *testing.T) {
	e := buildEngine(t, brokenStore{})

	_, err := e.Login(context.Background(), "alice", "pw")
	if KindOf(err) != KindInfrastructure {
		t.Fatalf("expected infrastructure kind, got %v", err)
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable in chain, got %v", err)
	}
}

func TestLoginVerifierFailureIsInfrastructure(t *testing.T) {
	v := newFakeVerifier()
	v.err = errors.New("db timeout")
	e, err := New().
		WithConfig(testConfig()).
		WithRefreshStore(refresh.NewMemoryStore(0)).
		WithCredentialVerifier(v).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()

	_, err = e.Login(context.Background(), "alice", "pw")
	if KindOf(err) != KindInfrastructure || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected wrapped infrastructure error, got %v", err)
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "alice", "pw"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Reissue(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(context.Background(), Principal{AccountID: "alice"}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 {
		t.Fatal("nil engine must report zero drops")
	}
}
