package auth

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradelab/src/model"
)

type userLoader interface {
	GetByUserName(ctx context.Context, userName string) (*model.User, error)
}

// Middleware resolves the authenticated user from the X-User-Name header and
// puts it on the request context. Requests without a resolvable user get 401.
// Credential verification happens at the edge proxy; this layer only maps the
// forwarded identity onto a user record.
func Middleware(users userLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userName := r.Header.Get("X-User-Name")
			if userName == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := users.GetByUserName(r.Context(), userName)
			if err != nil {
				logger.WithField("userName", userName).Warn("unknown user on request")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
