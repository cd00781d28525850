package handlers

import (
	"context"
	"net/http"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
	"github.com/dlt194/ipn-webmanager/internal/store"
)

// ApplianceHandler proxies management calls to a stored IP Office appliance.
// Every request authenticates a fresh appliance session, runs the call, and
// logs out best-effort.
type ApplianceHandler struct {
	deps *common.Dependencies
}

func NewApplianceHandler(deps *common.Dependencies) *ApplianceHandler {
	return &ApplianceHandler{deps: deps}
}

// upstreamMeta echoes diagnostic detail about the appliance response.
type upstreamMeta struct {
	UpstreamStatus      int    `json:"upstreamStatus"`
	UpstreamContentType string `json:"upstreamContentType"`
	ParsedAs            string `json:"parsedAs,omitempty"`
}

// loadCredentials resolves the server config for the authenticated owner and
// decrypts the stored appliance password.
func (h *ApplianceHandler) loadCredentials(w http.ResponseWriter, r *http.Request) (store.ServerConfig, ipo.Credentials, bool) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return store.ServerConfig{}, ipo.Credentials{}, false
	}

	sc, err := h.deps.Q.GetServerConfig(r.Context(), common.Owner(r), id)
	if common.HandleDBError(w, r, err, "Server config") {
		return store.ServerConfig{}, ipo.Credentials{}, false
	}

	password, err := h.deps.Decrypt(sc.PwdCipher)
	if err != nil {
		common.SendError(w, r, http.StatusInternalServerError, "DECRYPT_ERROR", "Failed to decrypt stored password", nil)
		return store.ServerConfig{}, ipo.Credentials{}, false
	}

	return sc, ipo.Credentials{
		Host:             sc.Host,
		Username:         sc.Username,
		Password:         string(password),
		AllowInsecureTLS: h.deps.Appliance.AllowInsecureTLS,
	}, true
}

// call runs one resource request inside a fresh appliance session.
func (h *ApplianceHandler) call(ctx context.Context, creds ipo.Credentials, path, method string, body any) (ipo.RawResponse, error) {
	return ipo.WithSession(ctx, h.deps.IPO, creds, func(sess ipo.Session) (ipo.RawResponse, error) {
		return h.deps.IPO.Request(ctx, creds, sess, path, method, body)
	})
}

// sendUpstreamError reports an appliance failure as a bad gateway.
func sendUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	common.SendError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
}
