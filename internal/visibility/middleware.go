package visibility

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/condohub/condohub/internal/shared"
)

// Identity headers set by the auth gateway.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

// IdentityMiddleware copies gateway identity headers into the request
// context. Missing or malformed ids leave the request anonymous.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{
			UserID: userID,
			Role:   string(ParseRole(r.Header.Get(HeaderRole))),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
