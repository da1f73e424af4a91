package authcore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contentshare/authcore/refresh"
)

var testSecret = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))

type fakeAccount struct {
	secret      string
	authorities []string
}

// fakeVerifier doubles as the authority resolver.
type fakeVerifier struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	err      error
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{accounts: map[string]fakeAccount{
		"alice": {secret: "pw", authorities: []string{"ROLE_USER"}},
		"bob":   {secret: "hunter2", authorities: []string{"ROLE_USER", "ROLE_ADMIN"}},
	}}
}

func (v *fakeVerifier) Verify(_ context.Context, identifier, secret string) (Principal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return Principal{}, v.err
	}
	a, ok := v.accounts[identifier]
	if !ok || a.secret != secret {
		return Principal{}, ErrCredentialInvalid
	}
	return Principal{AccountID: identifier, Authorities: a.authorities}, nil
}

func (v *fakeVerifier) Authorities(_ context.Context, accountID string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	a, ok := v.accounts[accountID]
	if !ok {
		return nil, ErrCredentialInvalid
	}
	return a.authorities, nil
}

func (v *fakeVerifier) remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.accounts, id)
}

// plainStore hides Swap so the engine takes the sequential path.
type plainStore struct {
	refresh.Store
}

// brokenStore fails every call like an unreachable backend.
type brokenStore struct{}

func (brokenStore) Put(context.Context, string, string) error {
	return fmt.Errorf("%w: connection refused", refresh.ErrUnavailable)
}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: connection refused", refresh.ErrUnavailable)
}

func (brokenStore) Delete(context.Context, string) error {
	return fmt.Errorf("%w: connection refused", refresh.ErrUnavailable)
}

// testClock is a settable clock shared by the engine and its store.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	return cfg
}

func buildEngine(t *testing.T, store refresh.Store, opts ...func(*Builder)) *Engine {
	t.Helper()
	b := New().
		WithConfig(testConfig()).
		WithRefreshStore(store).
		WithCredentialVerifier(newFakeVerifier())
	for _, opt := range opts {
		opt(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func mustLogin(t *testing.T, e *Engine, id, secret string) TokenPair {
	t.Helper()
	pair, err := e.Login(context.Background(), id, secret)
	if err != nil {
		t.Fatalf("login %s: %v", id, err)
	}
	return pair
}
