package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/api/middleware"
	"github.com/angelmondragon/easyshop-backend/api/responses"
	"github.com/angelmondragon/easyshop-backend/api/validators"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/pagination"
)

// action is the body of an endpoint. Its result goes into the success
// envelope; its error goes through responses.WriteError.
type action func(r *http.Request) (any, error)

func handle(logg *logger.Logger, act action) http.HandlerFunc {
	return handleStatus(logg, http.StatusOK, act)
}

func handleCreated(logg *logger.Logger, act action) http.HandlerFunc {
	return handleStatus(logg, http.StatusCreated, act)
}

func handleStatus(logg *logger.Logger, status int, act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := act(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// unavailable stands in for a handler whose service was not wired.
func unavailable(logg *logger.Logger, service string) http.HandlerFunc {
	return handle(logg, func(*http.Request) (any, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable")
	})
}

// decode reads and validates a JSON body into a fresh T.
func decode[T any](r *http.Request) (T, error) {
	var body T
	err := validators.DecodeJSONBody(r, &body)
	return body, err
}

func callerID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.EntityIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing")
	}
	return id, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, key+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

// callerAndPath resolves the authenticated caller and one id path segment.
func callerAndPath(r *http.Request, key string) (caller, id uuid.UUID, err error) {
	if caller, err = callerID(r); err != nil {
		return
	}
	id, err = pathUUID(r, key)
	return
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
