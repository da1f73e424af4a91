package comment

import (
	"context"

	"github.com/rs/zerolog"
)

// PostResolver maps a post's public UUID to its row id. *post.PostgresRepository
// satisfies it; a missing post surfaces as that package's ErrNotFound.
type PostResolver interface {
	ResolveID(ctx context.Context, postUUID string) (int64, error)
}

type Service struct {
	repo  Repository
	posts PostResolver
	log   zerolog.Logger
}

func NewService(repo Repository, posts PostResolver, log zerolog.Logger) *Service {
	return &Service{repo: repo, posts: posts, log: log.With().Str("component", "comment").Logger()}
}

// Create adds a comment by loginID under the post identified by postUUID.
func (s *Service) Create(ctx context.Context, postUUID, loginID string, req CreateRequest) (View, error) {
	if err := req.Validate(); err != nil {
		return View{}, err
	}

	postID, err := s.posts.ResolveID(ctx, postUUID)
	if err != nil {
		return View{}, err
	}

	c := &Comment{PostID: postID, AuthorLoginID: loginID, Content: req.Content}
	if err := s.repo.Create(ctx, c); err != nil {
		return View{}, err
	}

	s.log.Debug().Int64("post_id", postID).Int64("comment_id", c.ID).Str("login_id", loginID).Msg("comment created")
	return c.View(), nil
}

// ListByPost returns the comments of postID oldest first.
func (s *Service) ListByPost(ctx context.Context, postID int64) ([]View, error) {
	comments, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(comments))
	for i := range comments {
		views = append(views, comments[i].View())
	}
	return views, nil
}
