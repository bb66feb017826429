package httptransport

import (
	"errors"
	"net/http"

	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/ports/errcode"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
)

func FromServiceError(err error) errcode.Code {
	switch {
	case errors.Is(err, errs.ErrTargetNotFound):
		return errcode.NotFoundTarget
	case errors.Is(err, errs.ErrSnapshotMissing):
		return errcode.NotFoundSnapshot
	case errors.Is(err, errs.ErrSessionNotFound):
		return errcode.NotFoundSession
	case errors.Is(err, errs.ErrLoginNotFound):
		return errcode.NotFoundLogin
	case errors.Is(err, errs.ErrFeedUnavailable):
		return errcode.FeedUnavailable
	case errors.Is(err, errs.ErrFeedEmpty),
		errors.Is(err, errs.ErrNoQuotes):
		return errcode.NoQuotes
	case errors.Is(err, errs.ErrRenderFailed):
		return errcode.RenderFailed
	case errors.Is(err, errs.ErrSendFailed):
		return errcode.SendFailed
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict):
		return errcode.Conflict
	default:
		return errcode.Internal
	}
}

// StatusFor maps a code to its HTTP status.
func StatusFor(code errcode.Code) int {
	switch code {
	case errcode.NotFoundTarget, errcode.NotFoundSnapshot, errcode.NotFoundSession, errcode.NotFoundLogin:
		return http.StatusNotFound
	case errcode.FeedUnavailable, errcode.RenderFailed, errcode.SendFailed:
		return http.StatusBadGateway
	case errcode.NoQuotes:
		return http.StatusUnprocessableEntity
	case errcode.Conflict:
		return http.StatusConflict
	case errcode.BadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
