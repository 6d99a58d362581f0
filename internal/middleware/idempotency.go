package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/datavend/backend/internal/repository/postgres"
)

// Responses above this size pass through uncached.
const maxIdempotencyBodySize = 1 << 20

// replayRecorder tees the response so it can be stored for replay.
type replayRecorder struct {
	http.ResponseWriter
	status    int
	body      *bytes.Buffer
	truncated bool
}

func (r *replayRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *replayRecorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.truncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the cached response when a request carries an
// Idempotency-Key that was already answered. Keys are scoped by method and
// path, so reusing a key against a different endpoint is not a collision.
func Idempotency(repo *postgres.IdempotencyRepository, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scope := r.Method + " " + r.URL.Path

			if entry, err := repo.Get(r.Context(), scope, key); err == nil && entry != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.ResponseStatus)
				w.Write([]byte(entry.ResponseBody))
				return
			}

			rec := &replayRecorder{ResponseWriter: w, body: &bytes.Buffer{}, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// 5xx responses are not cached; the client should retry those.
			// Truncated bodies are never cached.
			if rec.status >= 200 && rec.status < 500 && !rec.truncated {
				now := time.Now()
				repo.Set(r.Context(), &postgres.IdempotencyEntry{
					Scope:          scope,
					Key:            key,
					ResponseBody:   rec.body.String(),
					ResponseStatus: rec.status,
					CreatedAt:      now,
					ExpiresAt:      now.Add(ttl),
				})
			}
		})
	}
}
