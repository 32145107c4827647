package api

import (
	"net/http"

	"github.com/vicinity-social/vicinity-feed/internal/auth"
	"github.com/vicinity-social/vicinity-feed/internal/middleware"
)

// RequireAuth is a middleware that validates the bearer token on the
// request and stores the authenticated viewer's id in the request
// context. Requests without a valid access token receive 401.
func RequireAuth(jwtSvc *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewerID, err := jwtSvc.ViewerFromRequest(r)
			if err != nil {
				ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
				WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or missing access token")
				return
			}

			ctx := middleware.SetViewerID(r.Context(), viewerID)
			// The logging middleware captured the pre-auth context; hand it
			// the updated one so viewer_id reaches the request log.
			middleware.UpdateResponseContext(w, ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
