package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns the request id with chi's middleware, keeping the
// caller's X-Request-ID when present, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
	return chimw.RequestID(echo)
}

// WithRequestID stores id where GetRequestID finds it, for requests that do
// not come through the HTTP router.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, chimw.RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
