// handler.go — общие вспомогательные функции обработчиков Portfolio API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/goportfolio/internal/api/errors"
	"github.com/bigkaa/goportfolio/internal/auth"
	"github.com/bigkaa/goportfolio/internal/domain/publication"
	"github.com/bigkaa/goportfolio/internal/repository"
	"github.com/bigkaa/goportfolio/internal/service"
	"github.com/bigkaa/goportfolio/internal/tenancy"
)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса, отклоняя неизвестные поля.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Единая точка соответствия ошибок и статус-кодов.
func writeServiceError(w http.ResponseWriter, err error) {
	var terr *publication.TransitionError

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.Unauthorized(w, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrThrottled), errors.Is(err, auth.ErrTooManyRequests):
		apierrors.RateLimited(w, service.ErrThrottled.Error())
	case errors.Is(err, auth.ErrWeakSecret):
		apierrors.ValidationError(w, auth.ErrWeakSecret.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, repository.ErrVersionMismatch):
		apierrors.Conflict(w, repository.ErrVersionMismatch.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		apierrors.FileTooLarge(w, service.ErrFileTooLarge.Error())
	case errors.Is(err, service.ErrUnsupportedMedia):
		apierrors.Unprocessable(w, err.Error())
	case errors.Is(err, tenancy.ErrForbidden):
		apierrors.Forbidden(w, "Недостаточно прав")
	case errors.Is(err, tenancy.ErrUnknownTenant):
		apierrors.NotFound(w, "Портфолио не найдено")
	case errors.As(err, &terr):
		apierrors.InvalidTransition(w, terr.Message)
	default:
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// paginationParams разбирает limit и offset из query-параметров.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
