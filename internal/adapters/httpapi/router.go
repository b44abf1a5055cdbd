package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	routeCancellation = "/trips/{tripId}/cancellation"
	routeWithdrawal   = "/trips/{tripId}/withdrawal"
)

type RouterOptions struct {
	// SubjectHeader names the header carrying the requester id. Defaults to X-Subject.
	SubjectHeader string
	Log           logrus.FieldLogger
}

// NewRouter constructs the API HTTP router.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Log != nil {
		r.Use(NewRequestLogger(opts.Log))
	}
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(NewSubjectMiddleware(opts.SubjectHeader))
		r.Post(routeCancellation, h.CancelTrip)
		r.Post(routeWithdrawal, h.WithdrawFromTrip)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}
