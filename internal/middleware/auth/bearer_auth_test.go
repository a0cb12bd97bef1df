package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sewing-flow/internal/config"
	"sewing-flow/internal/storage"
)

func TestBearer(t *testing.T) {
	tokens := []config.AuthToken{
		{Token: "admin-token", Role: "admin"},
		{Token: "tech-token", Role: "technologist", FloorID: 2},
	}

	var gotPrincipal storage.Principal
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotPrincipal, _ = PrincipalFromContext(r.Context())
	})

	handler := Bearer(tokens)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantRole   storage.Role
		wantFloor  int
	}{
		{"токен админа", "Bearer admin-token", http.StatusOK, storage.RoleAdmin, 0},
		{"токен технолога с этажом", "Bearer tech-token", http.StatusOK, storage.RoleTechnologist, 2},
		{"без заголовка", "", http.StatusUnauthorized, "", 0},
		{"не Bearer", "Basic admin-token", http.StatusUnauthorized, "", 0},
		{"неизвестный токен", "Bearer stolen-token", http.StatusUnauthorized, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodGet, "/api/plan", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if tt.wantStatus == http.StatusOK {
				assert.True(t, called)
				assert.Equal(t, tt.wantRole, gotPrincipal.Role)
				assert.Equal(t, tt.wantFloor, gotPrincipal.FloorID)
			} else {
				assert.False(t, called)
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}
