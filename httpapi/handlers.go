package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/member"
	"github.com/contentshare/authcore/middleware"
	"github.com/contentshare/authcore/post"
	"github.com/contentshare/authcore/storage"
)

const maxJSONBody = 64 << 10

type loginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type tokenResponse struct {
	GrantType   string `json:"grantType"`
	AccessToken string `json:"accessToken"`
}

var errBadJSON = fmt.Errorf("%w: malformed request body", member.ErrInvalidMember)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

func (a *api) join(w http.ResponseWriter, r *http.Request) {
	var req member.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	id, err := a.members.Join(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	pair, err := a.engine.Login(r.Context(), req.LoginID, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	setRefreshCookie(w, r, pair.RefreshToken, a.engine.RefreshTTL())
	writeJSON(w, http.StatusOK, tokenResponse{GrantType: pair.GrantType, AccessToken: pair.AccessToken})
}

func (a *api) reissue(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil || c.Value == "" {
		a.writeError(w, r, authcore.ErrTokenInvalid)
		return
	}

	pair, err := a.engine.Reissue(r.Context(), c.Value)
	if err != nil {
		if authcore.KindOf(err) != authcore.KindInfrastructure {
			clearRefreshCookie(w, r)
		}
		a.writeError(w, r, err)
		return
	}

	setRefreshCookie(w, r, pair.RefreshToken, a.engine.RefreshTTL())
	writeJSON(w, http.StatusOK, tokenResponse{GrantType: pair.GrantType, AccessToken: pair.AccessToken})
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.engine.Logout(r.Context(), p); err != nil {
		a.writeError(w, r, err)
		return
	}
	clearRefreshCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	profile, err := a.members.Profile(r.Context(), p.AccountID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *api) updateMe(w http.ResponseWriter, r *http.Request) {
	var req member.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := a.members.Update(r.Context(), p.AccountID, req); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) uploadImage(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "storage_disabled", Message: "image storage is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		a.writeError(w, r, fmt.Errorf("%w: %v", storage.ErrInvalidObject, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		a.writeError(w, r, fmt.Errorf("%w: missing file part", storage.ErrInvalidObject))
		return
	}
	up, err := a.readFilePart(headers[0])
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	p, _ := middleware.PrincipalFromContext(r.Context())
	obj, err := a.images.Upload(r.Context(), p.AccountID, up.Filename, up.ContentType, up.Body)
	if err != nil {
		a.writeImageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (a *api) deleteImage(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "storage_disabled", Message: "image storage is not configured"})
		return
	}

	key := r.PathValue("key")
	p, _ := middleware.PrincipalFromContext(r.Context())
	if !storage.OwnedBy(key, p.AccountID) {
		writeJSON(w, http.StatusForbidden, errorBody{Code: "forbidden", Message: "image belongs to another member"})
		return
	}

	if err := a.images.Delete(r.Context(), key); err != nil {
		a.writeImageError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readFilePart reads one multipart file. A missing or generic content type is
// sniffed from the body.
func (a *api) readFilePart(fh *multipart.FileHeader) (post.Upload, error) {
	file, err := fh.Open()
	if err != nil {
		return post.Upload{}, fmt.Errorf("%w: %v", storage.ErrInvalidObject, err)
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, a.maxUpload+1))
	if err != nil {
		return post.Upload{}, fmt.Errorf("%w: %v", storage.ErrInvalidObject, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	return post.Upload{Filename: fh.Filename, ContentType: contentType, Body: body}, nil
}

// writeImageError keeps storage failures out of the auth taxonomy.
func (a *api) writeImageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrInvalidObject) || errors.Is(err, storage.ErrObjectNotFound) {
		a.writeError(w, r, err)
		return
	}
	a.log.Error().Err(err).Str("path", r.URL.Path).Msg("image storage failed")
	writeJSON(w, http.StatusBadGateway, errorBody{Code: "storage_unavailable", Message: "image storage failed"})
}
