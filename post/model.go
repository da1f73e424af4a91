package post

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contentshare/authcore/comment"
)

const (
	maxTitleLen = 100
	// DefaultPageSize is used when a listing does not name a size.
	DefaultPageSize = 20
)

var (
	ErrNotFound    = errors.New("post not found")
	ErrForbidden   = errors.New("only the author may change this post")
	ErrInvalidPost = errors.New("invalid post")
)

// Post is one row of the posts table with its author and images.
type Post struct {
	ID            int64
	UUID          string
	Title         string
	Content       string
	AuthorLoginID string
	AuthorName    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Images        []Image
}

// Image links a stored object to a post.
type Image struct {
	ID       int64  `json:"id"`
	Key      string `json:"-"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Summary is one entry of a listing.
type Summary struct {
	UUID         string    `json:"id"`
	Title        string    `json:"title"`
	Writer       string    `json:"writer"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt"`
	CommentCount int       `json:"commentCount"`
}

// Page is a 1-based slice of a listing.
type Page[T any] struct {
	Items         []T   `json:"postList"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Size          int   `json:"size"`
	Number        int   `json:"number"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

func newPage[T any](items []T, total int64, number, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(size) - 1) / int64(size))
	return Page[T]{
		Items:         items,
		TotalElements: total,
		TotalPages:    pages,
		Size:          size,
		Number:        number,
		First:         number == 1,
		Last:          number >= pages,
	}
}

// Detail is the full view of a post.
type Detail struct {
	UUID       string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	UserName   string         `json:"userName"`
	Writer     string         `json:"writer"`
	CreatedAt  time.Time      `json:"createdAt"`
	ModifiedAt time.Time      `json:"modifiedAt"`
	ImageURLs  []string       `json:"imageUrls"`
	Images     []Image        `json:"images"`
	Comments   []comment.View `json:"comments"`
}

// Upload is an image file received with a create or update.
type Upload struct {
	Filename    string
	ContentType string
	Body        []byte
}

type CreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r CreateRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidPost)
	}
	return nil
}

// UpdateRequest changes the non-nil text fields and drops the listed images.
type UpdateRequest struct {
	Title          *string `json:"title"`
	Content        *string `json:"content"`
	DeleteImageIDs []int64 `json:"deleteImageIds"`
}

func (r UpdateRequest) Validate() error {
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Content != nil && strings.TrimSpace(*r.Content) == "" {
		return fmt.Errorf("%w: content must not be blank", ErrInvalidPost)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidPost, maxTitleLen)
	}
	return nil
}
