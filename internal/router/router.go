// Package router wires the HTTP surface of the API: the middleware chain,
// the routes under /api and the conversion of handler errors into JSON responses.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catsapi/internal/httpmw"
	"github.com/patric-chuzhbe/catsapi/internal/logger"
	"github.com/patric-chuzhbe/catsapi/internal/models"
	"github.com/patric-chuzhbe/catsapi/internal/validation"
)

type catsService interface {
	List(ctx context.Context) ([]models.Cat, error)

	Get(ctx context.Context, id int64) (*models.Cat, error)

	Create(ctx context.Context, request models.CreateCatRequest) (*models.Cat, error)

	Update(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error)

	Delete(ctx context.Context, id int64) error
}

type authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)

	RequireBearerToken(h http.Handler) http.Handler
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Router is the http.Handler of the whole API.
type Router struct {
	cats       catsService
	auth       authenticator
	db         pinger
	csrfOrigin string
	mux        *chi.Mux
}

type handlerFunc func(response http.ResponseWriter, request *http.Request) error

// New builds the route tree. csrfOrigin is the only origin allowed to send
// unsafe form requests.
func New(
	cats catsService,
	auth authenticator,
	db pinger,
	csrfOrigin string,
) *Router {
	r := &Router{
		cats:       cats,
		auth:       auth,
		db:         db,
		csrfOrigin: csrfOrigin,
		mux:        chi.NewRouter(),
	}

	r.mux.Use(
		logger.WithLoggingHTTPMiddleware,
		httpmw.Recoverer,
		httpmw.GzipResponse,
		httpmw.UngzipRequest,
		httpmw.SecureHeaders,
		httpmw.CORS,
		httpmw.CSRF(r.csrfOrigin),
		middleware.StripSlashes,
	)

	r.mux.NotFound(func(response http.ResponseWriter, request *http.Request) {
		writeJSONError(response, http.StatusNotFound, nil)
	})
	r.mux.MethodNotAllowed(func(response http.ResponseWriter, request *http.Request) {
		writeJSONError(response, http.StatusMethodNotAllowed, nil)
	})

	r.mux.Route("/api", func(api chi.Router) {
		api.Get("/", r.handle(r.getRoot))
		api.Get("/ping", r.handle(r.getPing))

		// Everything under /private, unknown paths included, is behind the gate.
		api.Route("/private", func(private chi.Router) {
			private.Use(r.auth.RequireBearerToken)
			private.Get("/", r.handle(r.getPrivate))
		})

		api.Post("/auth/jwt/login", r.handle(r.postLogin))

		api.Route("/cats", func(cats chi.Router) {
			cats.Get("/", r.handle(r.getCats))
			cats.Post("/", r.handle(r.postCat))
			cats.Get("/{id}", r.handle(r.getCat))
			cats.Patch("/{id}", r.handle(r.patchCat))
			cats.Delete("/{id}", r.handle(r.deleteCat))
		})
	})

	return r
}

func (r *Router) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	r.mux.ServeHTTP(response, request)
}

// handle is the single place where handler errors become responses.
func (r *Router) handle(h handlerFunc) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		err := h(response, request)
		if err == nil {
			return
		}

		var validationError *validation.Error
		switch {
		case errors.As(err, &validationError):
			writeJSONError(response, http.StatusBadRequest, validationError.Violations)
		case errors.Is(err, models.ErrNotFound):
			writeJSONError(response, http.StatusNotFound, nil)
		case errors.Is(err, models.ErrUnauthorized):
			writeJSONError(response, http.StatusUnauthorized, nil)
		case errors.Is(err, models.ErrConflict):
			writeJSONError(response, http.StatusConflict, nil)
		default:
			logger.Log.Errorw(
				"request failed",
				"request_id", logger.RequestIDFromContext(request.Context()),
				"uri", request.RequestURI,
				zap.Error(err),
			)
			writeJSONError(response, http.StatusInternalServerError, nil)
		}
	}
}

func (r *Router) getRoot(response http.ResponseWriter, request *http.Request) error {
	return writeText(response, "Hello Hono!")
}

func (r *Router) getPing(response http.ResponseWriter, request *http.Request) error {
	if err := r.db.Ping(request.Context()); err != nil {
		return err
	}

	return writeText(response, "OK")
}

func (r *Router) getPrivate(response http.ResponseWriter, request *http.Request) error {
	return writeText(response, "You are authorized")
}

func (r *Router) postLogin(response http.ResponseWriter, request *http.Request) error {
	credentials, err := validation.ParseLogin(request.Body)
	if err != nil {
		return err
	}

	accessToken, err := r.auth.Login(request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		return err
	}

	return writeJSON(response, http.StatusOK, models.LoginResponse{
		Status:      models.StatusAuthorized,
		AccessToken: accessToken,
	})
}

func (r *Router) getCats(response http.ResponseWriter, request *http.Request) error {
	cats, err := r.cats.List(request.Context())
	if err != nil {
		return err
	}

	return writeJSON(response, http.StatusOK, models.CatsResponse{
		Status: models.StatusOK,
		Cats:   cats,
	})
}

func (r *Router) getCat(response http.ResponseWriter, request *http.Request) error {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		return err
	}

	cat, err := r.cats.Get(request.Context(), id)
	if err != nil {
		return err
	}

	return writeJSON(response, http.StatusOK, models.CatResponse{
		Status: models.StatusOK,
		Data:   *cat,
	})
}

func (r *Router) postCat(response http.ResponseWriter, request *http.Request) error {
	payload, err := validation.ParseCreateCat(request.Body)
	if err != nil {
		return err
	}

	cat, err := r.cats.Create(request.Context(), payload)
	if err != nil {
		return err
	}

	return writeJSON(response, http.StatusCreated, models.CatResponse{
		Status: models.StatusOK,
		Data:   *cat,
	})
}

// patchCat answers 404 for an unknown id even when the body is invalid.
func (r *Router) patchCat(response http.ResponseWriter, request *http.Request) error {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		return err
	}

	if _, err := r.cats.Get(request.Context(), id); err != nil {
		return err
	}

	patch, err := validation.ParseUpdateCat(request.Body)
	if err != nil {
		return err
	}

	cat, err := r.cats.Update(request.Context(), id, patch)
	if err != nil {
		return err
	}

	return writeJSON(response, http.StatusCreated, models.CatResponse{
		Status: models.StatusOK,
		Data:   *cat,
	})
}

func (r *Router) deleteCat(response http.ResponseWriter, request *http.Request) error {
	id, err := validation.ParseID(chi.URLParam(request, "id"))
	if err != nil {
		return err
	}

	if err := r.cats.Delete(request.Context(), id); err != nil {
		return err
	}

	response.WriteHeader(http.StatusNoContent)

	return nil
}

func writeText(response http.ResponseWriter, text string) error {
	response.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	response.WriteHeader(http.StatusOK)
	_, err := response.Write([]byte(text))

	return err
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	_, err = response.Write(body)

	return err
}

func writeJSONError(response http.ResponseWriter, status int, violations []validation.Violation) {
	errorResponse := models.ErrorResponse{
		Status:  models.StatusError,
		Message: http.StatusText(status),
	}
	if len(violations) > 0 {
		errorResponse.Errors = violations
	}

	if err := writeJSON(response, status, errorResponse); err != nil {
		logger.Log.Debugln("Error calling the `writeJSON()`: ", zap.Error(err))
	}
}
