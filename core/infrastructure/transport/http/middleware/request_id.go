package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	sharedctx "github.com/semlayer/semlayer/core/shared/context"
)

// RequestContext copies chi's request id into the shared context so tagged
// loggers pick it up, and echoes it back to the caller
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id == "" {
			id = sharedctx.GenerateRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(sharedctx.WithRequestID(r.Context(), id)))
	})
}

// ProjectContext records the {projectUuid} route parameter in the shared
// context
func ProjectContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := sharedctx.WithProjectUUID(r.Context(), chi.URLParam(r, "projectUuid"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
