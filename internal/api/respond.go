package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"game-ledger-bot/internal/ledger"
	"game-ledger-bot/internal/pkg/lock"
	"game-ledger-bot/internal/repository"
	"game-ledger-bot/internal/service"
)

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type okMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Message: message})
}

func writeOK(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, okMessage{Success: true, Message: message})
}

// writeError maps a service error to a status code. notFound is the message
// for missing records; anything unexpected is logged and reported as fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeFailure(w, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrNoActiveSession):
		writeFailure(w, http.StatusNotFound, "没有进行中的会话")
	case errors.Is(err, service.ErrLinkedSession):
		writeFailure(w, http.StatusBadRequest, "关联的会话不存在")
	case errors.Is(err, ledger.ErrSessionNotActive):
		writeFailure(w, http.StatusConflict, "会话已结束或已归档")
	case errors.Is(err, service.ErrStatusTransition):
		writeFailure(w, http.StatusConflict, "不支持的状态变更")
	case errors.Is(err, lock.ErrLockTimeout):
		writeFailure(w, http.StatusConflict, "会话正在结算，请稍后重试")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidMultiAccount),
		errors.Is(err, ledger.ErrEndBeforeStart),
		errors.Is(err, ledger.ErrMissingStartTime),
		errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, repository.ErrConstraint):
		writeFailure(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeFailure(w, http.StatusInternalServerError, fallback)
	}
}

// readJSON decodes a JSON request body. The size cap is applied by the
// body limit middleware.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, "请求体过大")
		} else {
			writeFailure(w, http.StatusBadRequest, "请求数据格式错误")
		}
		return v, false
	}
	return v, true
}

// idParam parses the {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeFailure(w, http.StatusBadRequest, "无效的ID")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// mustUser returns the authenticated owner; RequireAuth guarantees it.
func mustUser(r *http.Request) int64 {
	id, _ := UserID(r.Context())
	return id
}
