package auth

import (
	"context"
	"net/http"
	"strings"

	"sewing-flow/internal/config"
	"sewing-flow/internal/storage"
)

type principalKey struct{}

// Bearer сопоставляет токен запроса с таблицей токенов из конфига и кладёт
// Principal в контекст. Дальше ядро получает субъекта только явным
// аргументом — из контекста его достают одни хендлеры.
func Bearer(tokens []config.AuthToken) func(http.Handler) http.Handler {
	byToken := make(map[string]storage.Principal, len(tokens))
	for _, t := range tokens {
		byToken[t.Token] = storage.Principal{Role: storage.Role(t.Role), FloorID: t.FloorID}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				requireAuth(w)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				requireAuth(w)
				return
			}

			principal, ok := byToken[strings.TrimSpace(authHeader[7:])]
			if !ok {
				requireAuth(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal кладёт субъекта в контекст запроса.
func WithPrincipal(ctx context.Context, principal storage.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (storage.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(storage.Principal)
	return principal, ok
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="sewing-flow"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
