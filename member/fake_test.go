package member

import (
	"context"
	"sync"
)

type fakeRepo struct {
	mu      sync.Mutex
	byLogin map[string]*Member
	nextID  int64
	updates int
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byLogin: map[string]*Member{}}
}

func (r *fakeRepo) Create(_ context.Context, m *Member) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byLogin[m.LoginID]; ok {
		return 0, ErrDuplicateLoginID
	}
	r.nextID++
	cp := *m
	cp.ID = r.nextID
	r.byLogin[m.LoginID] = &cp
	return cp.ID, nil
}

func (r *fakeRepo) FindByLoginID(_ context.Context, loginID string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	m, ok := r.byLogin[loginID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) ExistsByLoginID(_ context.Context, loginID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byLogin[loginID]
	return ok, nil
}

func (r *fakeRepo) Update(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byLogin[m.LoginID]; !ok {
		return ErrNotFound
	}
	cp := *m
	r.byLogin[m.LoginID] = &cp
	r.updates++
	return nil
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
