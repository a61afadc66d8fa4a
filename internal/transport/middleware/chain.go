package middleware

import (
	"log/slog"
	"net/http"

	"github.com/heartmarshall/wardsync/internal/config"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middleware into a single Middleware.
// Chain(mw1, mw2)(handler) results in mw1(mw2(handler)), so mw1 runs first.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

// Standard is the stack in front of every local API route. RequestID is
// outermost so access logs and recovered panics carry the id.
func Standard(logger *slog.Logger, cors config.CORSConfig) Middleware {
	return Chain(
		RequestID(),
		Logger(logger),
		Recovery(logger),
		CORS(cors),
	)
}
