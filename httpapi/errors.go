package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/member"
	"github.com/contentshare/authcore/post"
	"github.com/contentshare/authcore/storage"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps auth failures to 401 and infrastructure to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, member.ErrDuplicateLoginID):
		return http.StatusConflict, "duplicate_login_id"
	case errors.Is(err, member.ErrInvalidMember), errors.Is(err, storage.ErrInvalidObject),
		errors.Is(err, post.ErrInvalidPost), errors.Is(err, comment.ErrInvalidComment):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, member.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound), errors.Is(err, post.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, post.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, post.ErrImagesDisabled):
		return http.StatusServiceUnavailable, "storage_disabled"
	}

	kind := authcore.KindOf(err)
	if kind == authcore.KindInfrastructure {
		return http.StatusInternalServerError, kind.String()
	}
	return http.StatusUnauthorized, kind.String()
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

func (a *api) writeGuardError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		code := "unauthorized"
		if status == http.StatusForbidden {
			code = "forbidden"
		}
		writeJSON(w, status, errorBody{Code: code, Message: http.StatusText(status)})
		return
	}
	if status == http.StatusInternalServerError {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, status, errorBody{Code: authcore.KindOf(err).String(), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
