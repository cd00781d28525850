package handlers

import (
	"net/http"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
)

const (
	licensesPath = "/admin/v1/licenses"
	systemsPath  = "/admin/v1/systems"
)

// ListLicenses handles GET /api/v1/server-configs/{id}/licenses
func (h *ApplianceHandler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}

	resp, err := h.call(r.Context(), creds, licensesPath, http.MethodGet, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	parsed := ipo.ParseLicenses(resp.Body)

	out := map[string]any{
		"licenses": parsed.Records,
		"meta": upstreamMeta{
			UpstreamStatus:      resp.Status,
			UpstreamContentType: resp.ContentType,
			ParsedAs:            string(parsed.Format),
		},
	}
	if h.deps.ReturnRaw(r) {
		out["raw"] = resp.Body
	}
	common.SendJSON(w, http.StatusOK, out)
}

// ListSystems handles GET /api/v1/server-configs/{id}/systems
func (h *ApplianceHandler) ListSystems(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}

	resp, err := h.call(r.Context(), creds, systemsPath, http.MethodGet, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	parsed := ipo.ParseSystems(resp.Body)

	out := map[string]any{
		"systems": parsed.Records,
		"meta": upstreamMeta{
			UpstreamStatus:      resp.Status,
			UpstreamContentType: resp.ContentType,
			ParsedAs:            string(parsed.Format),
		},
	}
	if h.deps.ReturnRaw(r) {
		out["raw"] = resp.Body
	}
	common.SendJSON(w, http.StatusOK, out)
}
