package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/storage"
)

// ErrImagesDisabled is returned when files arrive but no image store is
// configured.
var ErrImagesDisabled = errors.New("image storage is not configured")

// ImageStore is satisfied by *storage.S3Store.
type ImageStore interface {
	Upload(ctx context.Context, owner, filename, contentType string, body []byte) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// CommentLister is satisfied by *comment.Service.
type CommentLister interface {
	ListByPost(ctx context.Context, postID int64) ([]comment.View, error)
}

type Service struct {
	repo     Repository
	images   ImageStore
	comments CommentLister
	log      zerolog.Logger
	pageSize int
}

// NewService wires a post service. images may be nil, in which case posts
// carrying files are rejected with ErrImagesDisabled.
func NewService(repo Repository, images ImageStore, comments CommentLister, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		images:   images,
		comments: comments,
		log:      log.With().Str("component", "post").Logger(),
		pageSize: DefaultPageSize,
	}
}

// Create stores a post by loginID and returns its UUID. Uploaded objects are
// removed again when the post cannot be saved.
func (s *Service) Create(ctx context.Context, loginID string, req CreateRequest, files []Upload) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	images, err := s.upload(ctx, loginID, files)
	if err != nil {
		return "", err
	}

	p := &Post{
		UUID:          uuid.NewString(),
		Title:         req.Title,
		Content:       req.Content,
		AuthorLoginID: loginID,
		Images:        images,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.discard(ctx, loginID, images)
		return "", err
	}

	s.log.Info().Str("post", p.UUID).Str("login_id", loginID).Int("images", len(images)).Msg("post created")
	return p.UUID, nil
}

func (s *Service) Detail(ctx context.Context, postUUID string) (Detail, error) {
	p, err := s.repo.FindByUUID(ctx, postUUID)
	if err != nil {
		return Detail{}, err
	}

	views, err := s.comments.ListByPost(ctx, p.ID)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		UUID:       p.UUID,
		Title:      p.Title,
		Content:    p.Content,
		UserName:   p.AuthorName,
		Writer:     p.AuthorLoginID,
		CreatedAt:  p.CreatedAt,
		ModifiedAt: p.UpdatedAt,
		ImageURLs:  make([]string, 0, len(p.Images)),
		Images:     p.Images,
		Comments:   views,
	}
	if d.Images == nil {
		d.Images = []Image{}
	}
	for _, img := range p.Images {
		d.ImageURLs = append(d.ImageURLs, img.URL)
	}
	return d, nil
}

// List returns page number (1-based) of all posts, newest first. Numbers
// below 1 are treated as 1.
func (s *Service) List(ctx context.Context, number int) (Page[Summary], error) {
	number = max(number, 1)
	items, total, err := s.repo.List(ctx, s.pageSize, (number-1)*s.pageSize)
	if err != nil {
		return Page[Summary]{}, err
	}
	return newPage(items, total, number, s.pageSize), nil
}

// ListByAuthor is List restricted to posts written by loginID.
func (s *Service) ListByAuthor(ctx context.Context, loginID string, number int) (Page[Summary], error) {
	number = max(number, 1)
	items, total, err := s.repo.ListByAuthor(ctx, loginID, s.pageSize, (number-1)*s.pageSize)
	if err != nil {
		return Page[Summary]{}, err
	}
	return newPage(items, total, number, s.pageSize), nil
}

// Update lets the author change the text, drop images by id and attach new
// files. Dropped images are deleted from storage after the change commits.
func (s *Service) Update(ctx context.Context, postUUID, loginID string, req UpdateRequest, files []Upload) error {
	if err := req.Validate(); err != nil {
		return err
	}

	p, err := s.repo.FindByUUID(ctx, postUUID)
	if err != nil {
		return err
	}
	if p.AuthorLoginID != loginID {
		return ErrForbidden
	}

	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}

	added, err := s.upload(ctx, loginID, files)
	if err != nil {
		return err
	}

	removed, err := s.repo.Update(ctx, p, req.DeleteImageIDs, added)
	if err != nil {
		s.discard(ctx, loginID, added)
		return err
	}
	s.discard(ctx, loginID, removed)

	s.log.Info().Str("post", p.UUID).Int("added", len(added)).Int("removed", len(removed)).Msg("post updated")
	return nil
}

// Delete removes the author's post, its comments and its stored images.
func (s *Service) Delete(ctx context.Context, postUUID, loginID string) error {
	p, err := s.repo.FindByUUID(ctx, postUUID)
	if err != nil {
		return err
	}
	if p.AuthorLoginID != loginID {
		return ErrForbidden
	}

	images, err := s.repo.Delete(ctx, p.ID)
	if err != nil {
		return err
	}
	s.discard(ctx, loginID, images)

	s.log.Info().Str("post", p.UUID).Str("login_id", loginID).Msg("post deleted")
	return nil
}

func (s *Service) upload(ctx context.Context, owner string, files []Upload) ([]Image, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, ErrImagesDisabled
	}

	images := make([]Image, 0, len(files))
	for _, f := range files {
		obj, err := s.images.Upload(ctx, owner, f.Filename, f.ContentType, f.Body)
		if err != nil {
			s.discard(ctx, owner, images)
			return nil, fmt.Errorf("upload %q: %w", f.Filename, err)
		}
		images = append(images, Image{Key: obj.Key, URL: obj.URL, Filename: f.Filename})
	}
	return images, nil
}

// discard deletes stored objects on a best-effort basis. Keys outside the
// owner's prefix are left alone.
func (s *Service) discard(ctx context.Context, owner string, images []Image) {
	if s.images == nil {
		return
	}
	for _, img := range images {
		if !storage.OwnedBy(img.Key, owner) {
			s.log.Warn().Str("key", img.Key).Str("login_id", owner).Msg("skipping image outside owner prefix")
			continue
		}
		if err := s.images.Delete(ctx, img.Key); err != nil {
			s.log.Error().Err(err).Str("key", img.Key).Msg("image delete failed")
		}
	}
}
