package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/member"
	"github.com/contentshare/authcore/middleware"
	"github.com/contentshare/authcore/post"
)

// Post writes arrive as multipart/form-data: a JSON "data" part, sent either
// as a plain field or as a file blob, plus any number of "files" parts.
const (
	postDataPart  = "data"
	postFilesPart = "files"
	maxPostFiles  = 10
)

var errBadPostForm = fmt.Errorf("%w: malformed post form", post.ErrInvalidPost)

// myPageResponse is the member's profile followed by a page of their posts.
type myPageResponse struct {
	member.Profile
	Posts         []post.Summary `json:"posts"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
	Size          int            `json:"size"`
	Number        int            `json:"number"`
	Last          bool           `json:"last"`
}

func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer", post.ErrInvalidPost)
	}
	return n, nil
}

func (a *api) listPosts(w http.ResponseWriter, r *http.Request) {
	n, err := pageParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.posts.List(r.Context(), n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *api) getPost(w http.ResponseWriter, r *http.Request) {
	d, err := a.posts.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) createPost(w http.ResponseWriter, r *http.Request) {
	var req post.CreateRequest
	files, err := a.parsePostForm(w, r, &req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	id, err := a.posts.Create(r.Context(), p.AccountID, req, files)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/posts/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *api) updatePost(w http.ResponseWriter, r *http.Request) {
	var req post.UpdateRequest
	files, err := a.parsePostForm(w, r, &req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.posts.Update(r.Context(), r.PathValue("id"), p.AccountID, req, files); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) deletePost(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.posts.Delete(r.Context(), r.PathValue("id"), p.AccountID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) myPosts(w http.ResponseWriter, r *http.Request) {
	n, err := pageParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	profile, err := a.members.Profile(r.Context(), p.AccountID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.posts.ListByAuthor(r.Context(), p.AccountID, n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, myPageResponse{
		Profile:       profile,
		Posts:         page.Items,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Size:          page.Size,
		Number:        page.Number,
		Last:          page.Last,
	})
}

func (a *api) createComment(w http.ResponseWriter, r *http.Request) {
	var req comment.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, fmt.Errorf("%w: malformed request body", comment.ErrInvalidComment))
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	v, err := a.comments.Create(r.Context(), r.PathValue("id"), p.AccountID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// parsePostForm decodes the data part into dst and reads the file parts.
func (a *api) parsePostForm(w http.ResponseWriter, r *http.Request, dst any) ([]post.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPostFiles*a.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		return nil, errBadPostForm
	}
	form := r.MultipartForm
	defer form.RemoveAll()

	var data []byte
	if v := form.Value[postDataPart]; len(v) > 0 {
		data = []byte(v[0])
	} else if fh := form.File[postDataPart]; len(fh) > 0 {
		f, err := fh[0].Open()
		if err != nil {
			return nil, errBadPostForm
		}
		data, err = io.ReadAll(io.LimitReader(f, maxJSONBody))
		f.Close()
		if err != nil {
			return nil, errBadPostForm
		}
	} else {
		return nil, fmt.Errorf("%w: missing %q part", post.ErrInvalidPost, postDataPart)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, errBadPostForm
	}

	headers := form.File[postFilesPart]
	if len(headers) > maxPostFiles {
		return nil, fmt.Errorf("%w: at most %d files", post.ErrInvalidPost, maxPostFiles)
	}
	files := make([]post.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size == 0 {
			continue
		}
		up, err := a.readFilePart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, up)
	}
	return files, nil
}
