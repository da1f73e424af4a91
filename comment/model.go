package comment

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const maxContentLen = 300

var ErrInvalidComment = errors.New("invalid comment")

// Comment is one row of the comments table joined with its author.
type Comment struct {
	ID            int64
	PostID        int64
	AuthorLoginID string
	Content       string
	CreatedAt     time.Time
}

// View is the public shape of a comment. Writer is the author's login id.
type View struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Writer    string    `json:"writer"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) View() View {
	return View{ID: c.ID, Content: c.Content, Writer: c.AuthorLoginID, CreatedAt: c.CreatedAt}
}

type CreateRequest struct {
	Content string `json:"content"`
}

func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidComment)
	}
	if utf8.RuneCountInString(r.Content) > maxContentLen {
		return fmt.Errorf("%w: content must be at most %d characters", ErrInvalidComment, maxContentLen)
	}
	return nil
}
