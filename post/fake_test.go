package post

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/storage"
)

type fakeRepo struct {
	mu        sync.Mutex
	posts     map[string]*Post
	nextID    int64
	nextImage int64
	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{posts: map[string]*Post{}}
}

func (r *fakeRepo) Create(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC).Add(time.Duration(p.ID) * time.Minute)
	p.UpdatedAt = p.CreatedAt
	p.AuthorName = "name-" + p.AuthorLoginID
	for i := range p.Images {
		r.nextImage++
		p.Images[i].ID = r.nextImage
	}
	cp := *p
	cp.Images = append([]Image(nil), p.Images...)
	r.posts[p.UUID] = &cp
	return nil
}

func (r *fakeRepo) FindByUUID(_ context.Context, postUUID string) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postUUID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Images = append([]Image(nil), p.Images...)
	return &cp, nil
}

func (r *fakeRepo) ResolveID(_ context.Context, postUUID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postUUID]
	if !ok {
		return 0, ErrNotFound
	}
	return p.ID, nil
}

func (r *fakeRepo) sorted(filter func(*Post) bool) []*Post {
	var out []*Post
	for _, p := range r.posts {
		if filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeRepo) page(filter func(*Post) bool, limit, offset int) ([]Summary, int64) {
	all := r.sorted(filter)
	var items []Summary
	for i := offset; i < len(all) && i < offset+limit; i++ {
		p := all[i]
		s := Summary{UUID: p.UUID, Title: p.Title, Writer: p.AuthorName, CreatedAt: p.CreatedAt, ModifiedAt: p.UpdatedAt}
		if len(p.Images) > 0 {
			s.ThumbnailURL = p.Images[0].URL
		}
		items = append(items, s)
	}
	return items, int64(len(all))
}

func (r *fakeRepo) List(_ context.Context, limit, offset int) ([]Summary, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, total := r.page(func(*Post) bool { return true }, limit, offset)
	return items, total, nil
}

func (r *fakeRepo) ListByAuthor(_ context.Context, loginID string, limit, offset int) ([]Summary, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, total := r.page(func(p *Post) bool { return p.AuthorLoginID == loginID }, limit, offset)
	return items, total, nil
}

func (r *fakeRepo) Update(_ context.Context, p *Post, removeIDs []int64, add []Image) ([]Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.posts[p.UUID]
	if !ok {
		return nil, ErrNotFound
	}
	stored.Title, stored.Content = p.Title, p.Content

	drop := map[int64]bool{}
	for _, id := range removeIDs {
		drop[id] = true
	}
	var kept, removed []Image
	for _, img := range stored.Images {
		if drop[img.ID] {
			removed = append(removed, img)
			continue
		}
		kept = append(kept, img)
	}
	for i := range add {
		r.nextImage++
		add[i].ID = r.nextImage
		kept = append(kept, add[i])
	}
	stored.Images = kept
	return removed, nil
}

func (r *fakeRepo) Delete(_ context.Context, postID int64) ([]Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.posts {
		if p.ID == postID {
			delete(r.posts, k)
			return p.Images, nil
		}
	}
	return nil, ErrNotFound
}

type fakeImages struct {
	mu        sync.Mutex
	stored    map[string]bool
	deleted   []string
	failAfter int
}

func newFakeImages() *fakeImages {
	return &fakeImages{stored: map[string]bool{}, failAfter: -1}
}

var errBucketDown = errors.New("bucket down")

func (f *fakeImages) Upload(_ context.Context, owner, filename, contentType string, body []byte) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter == 0 {
		return storage.Object{}, errBucketDown
	}
	if f.failAfter > 0 {
		f.failAfter--
	}
	key := fmt.Sprintf("images/%s/2026/10/17/%d-%s", owner, len(f.stored), filename)
	f.stored[key] = true
	return storage.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeComments map[int64][]comment.View

func (c fakeComments) ListByPost(_ context.Context, postID int64) ([]comment.View, error) {
	views := c[postID]
	if views == nil {
		views = []comment.View{}
	}
	return views, nil
}
