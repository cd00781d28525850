package common

import (
	"log/slog"
	"net/http"

	"github.com/dlt194/ipn-webmanager/internal/auth"
	"github.com/dlt194/ipn-webmanager/internal/config"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
	"github.com/dlt194/ipn-webmanager/internal/middleware"
	"github.com/dlt194/ipn-webmanager/internal/store"
)

// Dependencies holds common dependencies for API handlers
type Dependencies struct {
	Q         store.Querier
	Auth      *auth.Service
	IPO       *ipo.Client
	Appliance config.ApplianceConfig
	Logger    *slog.Logger
}

// Encrypt is a helper to encrypt data using the Auth service
func (d *Dependencies) Encrypt(data []byte) (string, error) {
	if d.Auth == nil {
		return string(data), nil
	}
	return d.Auth.Encrypt(data)
}

// Decrypt is a helper to decrypt data using the Auth service
func (d *Dependencies) Decrypt(encrypted string) ([]byte, error) {
	if d.Auth == nil {
		return []byte(encrypted), nil
	}
	return d.Auth.Decrypt(encrypted)
}

// Owner returns the authenticated operator for the request. Every stored
// row is scoped to this value.
func Owner(r *http.Request) string {
	owner, _ := r.Context().Value(middleware.UsernameKey).(string)
	return owner
}

// ReturnRaw reports whether the raw upstream body should be echoed back,
// either per-request (?debug=1) or globally via config.
func (d *Dependencies) ReturnRaw(r *http.Request) bool {
	return r.URL.Query().Get("debug") == "1" || d.Appliance.DebugReturnRaw
}
