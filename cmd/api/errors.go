package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/errs"
	"github.com/go-playground/validator/v10"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path)

	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, errs.Message(err))
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, errs.Message(err))
}

func (app *application) unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unprocessable entity", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.Round(time.Second).String())
}

func (app *application) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, msg string) {
	app.logger.Warnw("service unavailable", "method", r.Method, "path", r.URL.Path, "reason", msg)

	writeJSONError(w, http.StatusServiceUnavailable, msg)
}

// failedValidationResponse reports each failing field under its json name.
func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		app.badRequestResponse(w, r, err)
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "email":
			fields[name] = "must be a valid email address"
		case "min", "gte":
			fields[name] = "must be at least " + fe.Param()
		case "max", "lte":
			fields[name] = "must be at most " + fe.Param()
		case "oneof":
			fields[name] = "must be one of: " + fe.Param()
		case "orderstatus":
			fields[name] = "must be a valid order status"
		default:
			fields[name] = "failed on " + fe.Tag()
		}
	}

	app.logger.Warnw("validation failed", "method", r.Method, "path", r.URL.Path, "fields", fields)
	writeJSONValidationError(w, fields)
}

// domainErrorResponse maps the error kinds returned by the domain services to
// a status code.
func (app *application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var rie *errs.ReferentialIntegrityError
	switch {
	case errors.As(err, &rie):
		app.unprocessableResponse(w, r, rie)
	case errors.Is(err, errs.ErrNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, errs.ErrInvalidArgument):
		app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeJSONError(w, http.StatusBadRequest, errs.Message(err))
	case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
