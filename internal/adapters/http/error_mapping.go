package httpadapter

import (
	"net/http"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
