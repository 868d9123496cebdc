package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// RequireUser достаёт пользователя из заголовка X-User-ID. Аутентификация вне этого сервиса.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			WriteError(w, e.ErrUserIDRequired)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

func userIDFromCtx(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// RequestLogger пишет метод, путь, код ответа и длительность каждого запроса.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Infof("%s %s %d %s request_id=%s",
				r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
		})
	}
}
