package httpapi

import (
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// DefaultSubjectHeader carries the authenticated user id set by the upstream gateway.
const DefaultSubjectHeader = "X-Subject"

// NewSubjectMiddleware stores the requester id from header in request context.
//
// Authentication happens upstream; requests without the header are rejected with 401.
func NewSubjectMiddleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultSubjectHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get(header))
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set "+header+")")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), domain.UserID(sub))))
		})
	}
}
