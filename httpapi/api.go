package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/member"
	"github.com/contentshare/authcore/middleware"
	"github.com/contentshare/authcore/post"
	"github.com/contentshare/authcore/storage"
)

// AdminAuthority guards the routes in Options.Admin.
const AdminAuthority = "ROLE_ADMIN"

// Engine is satisfied by *authcore.Engine.
type Engine interface {
	Login(ctx context.Context, identifier, secret string) (authcore.TokenPair, error)
	Reissue(ctx context.Context, refreshToken string) (authcore.TokenPair, error)
	Logout(ctx context.Context, principal authcore.Principal) error
	Authenticate(ctx context.Context, accessToken string) (authcore.Principal, error)
	RefreshTTL() time.Duration
}

// Members is satisfied by *member.Service.
type Members interface {
	Join(ctx context.Context, req member.JoinRequest) (int64, error)
	Profile(ctx context.Context, loginID string) (member.Profile, error)
	Update(ctx context.Context, loginID string, req member.UpdateRequest) error
}

// Images is satisfied by *storage.S3Store.
type Images interface {
	Upload(ctx context.Context, owner, filename, contentType string, body []byte) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// Posts is satisfied by *post.Service.
type Posts interface {
	Create(ctx context.Context, loginID string, req post.CreateRequest, files []post.Upload) (string, error)
	Detail(ctx context.Context, postUUID string) (post.Detail, error)
	List(ctx context.Context, page int) (post.Page[post.Summary], error)
	ListByAuthor(ctx context.Context, loginID string, page int) (post.Page[post.Summary], error)
	Update(ctx context.Context, postUUID, loginID string, req post.UpdateRequest, files []post.Upload) error
	Delete(ctx context.Context, postUUID, loginID string) error
}

// Comments is satisfied by *comment.Service.
type Comments interface {
	Create(ctx context.Context, postUUID, loginID string, req comment.CreateRequest) (comment.View, error)
}

// Options wires the handler. Images may be nil, in which case the image
// routes answer 503. The post and comment routes are mounted only when Posts
// and Comments are set.
type Options struct {
	Engine   Engine
	Members  Members
	Images   Images
	Posts    Posts
	Comments Comments
	Logger   zerolog.Logger
	// MaxUploadBytes bounds multipart bodies; zero means storage.DefaultMaxBytes.
	MaxUploadBytes int64
	// Extra routes, mounted as given.
	Extra map[string]http.Handler
	// Admin routes such as /metrics require a bearer token carrying
	// AdminAuthority.
	Admin map[string]http.Handler
}

type api struct {
	engine    Engine
	members   Members
	images    Images
	posts     Posts
	comments  Comments
	log       zerolog.Logger
	maxUpload int64
}

// New returns the routed handler with access logging and client IP
// propagation applied.
func New(opts Options) http.Handler {
	a := &api{
		engine:    opts.Engine,
		members:   opts.Members,
		images:    opts.Images,
		posts:     opts.Posts,
		comments:  opts.Comments,
		log:       opts.Logger.With().Str("component", "httpapi").Logger(),
		maxUpload: opts.MaxUploadBytes,
	}
	if a.maxUpload <= 0 {
		a.maxUpload = storage.DefaultMaxBytes
	}

	guard := middleware.Guard(opts.Engine, a.writeGuardError)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /members", a.join)
	mux.HandleFunc("POST /login", a.login)
	mux.HandleFunc("POST /auth/reissue", a.reissue)
	mux.Handle("POST /auth/logout", guard(http.HandlerFunc(a.logout)))
	mux.Handle("GET /members/me", guard(http.HandlerFunc(a.me)))
	mux.Handle("PATCH /members/me", guard(http.HandlerFunc(a.updateMe)))
	mux.Handle("POST /images", guard(http.HandlerFunc(a.uploadImage)))
	mux.Handle("DELETE /images/{key...}", guard(http.HandlerFunc(a.deleteImage)))
	if a.posts != nil {
		mux.HandleFunc("GET /posts", a.listPosts)
		mux.HandleFunc("GET /posts/{id}", a.getPost)
		mux.Handle("POST /posts", guard(http.HandlerFunc(a.createPost)))
		mux.Handle("PATCH /posts/{id}", guard(http.HandlerFunc(a.updatePost)))
		mux.Handle("DELETE /posts/{id}", guard(http.HandlerFunc(a.deletePost)))
		mux.Handle("GET /members/me/posts", guard(http.HandlerFunc(a.myPosts)))
	}
	if a.comments != nil {
		mux.Handle("POST /posts/{id}/comments", guard(http.HandlerFunc(a.createComment)))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	for pattern, h := range opts.Extra {
		mux.Handle(pattern, h)
	}
	admin := middleware.RequireAuthority(AdminAuthority, a.writeGuardError)
	for pattern, h := range opts.Admin {
		mux.Handle(pattern, guard(admin(h)))
	}

	return a.accessLog(withClientIP(mux))
}
