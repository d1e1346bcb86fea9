package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/api"
	"github.com/florianreyes/shipba-rag/internal/domain"
)

type contextKey string

const ProfileIDKey contextKey = "profile_id"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth resolves "Authorization: Bearer <token>" to a profile ID.
// Unknown and revoked keys are 401s; a failing key store is a 500.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, status, msg := bearerToken(r.Header.Get("Authorization"))
			if status != 0 {
				api.Error(w, status, msg)
				return
			}

			profileID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrAPIKeyRevoked):
					api.Error(w, http.StatusUnauthorized, domain.ErrAPIKeyRevoked.Message)
				case domain.CodeOf(err) == domain.ErrCodeUnauthorized:
					api.Error(w, http.StatusUnauthorized, "invalid api key")
				default:
					api.HandleError(w, err)
				}
				return
			}

			if info := profileInfoFrom(r.Context()); info != nil {
				info.id = profileID
			}
			ctx := context.WithValue(r.Context(), ProfileIDKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, int, string) {
	if header == "" {
		return "", http.StatusUnauthorized, "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", http.StatusUnauthorized, "invalid authorization format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", http.StatusUnauthorized, "invalid authorization format"
	}
	return token, 0, ""
}

// GetProfileID returns the authenticated caller, or "" outside APIKeyAuth.
func GetProfileID(ctx context.Context) string {
	profileID, _ := ctx.Value(ProfileIDKey).(string)
	return profileID
}

const profileInfoKey contextKey = "profile_info"

// profileInfo lets middleware that runs before APIKeyAuth read the caller
// once the request has been handled.
type profileInfo struct {
	id string
}

func withProfileInfo(ctx context.Context) (context.Context, *profileInfo) {
	if info := profileInfoFrom(ctx); info != nil {
		return ctx, info
	}
	info := &profileInfo{}
	return context.WithValue(ctx, profileInfoKey, info), info
}

func profileInfoFrom(ctx context.Context) *profileInfo {
	info, _ := ctx.Value(profileInfoKey).(*profileInfo)
	return info
}
