package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
)

const extensionsPath = "/admin/v1/extensions"

// ListExtensions handles GET /api/v1/server-configs/{id}/extensions
func (h *ApplianceHandler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}

	resp, err := h.call(r.Context(), creds, extensionsPath, http.MethodGet, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	parsed := ipo.ParseExtensions(resp.Body)

	out := map[string]any{
		"extensions": parsed.Records,
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

// ExtensionInput carries the writable extension fields. Blank fields are
// omitted from the appliance payload.
type ExtensionInput struct {
	GUID              string `json:"guid"`
	Extension         string `json:"extension"`
	TypeInfo          string `json:"typeInfo"`
	CallerDisplayType string `json:"callerDisplayType"`
	Module            string `json:"module"`
	Port              string `json:"port"`
	Location          string `json:"location"`
}

func buildExtensionPayload(guid string, input ExtensionInput) map[string]any {
	extension := map[string]string{}
	if guid != "" {
		extension["@GUID"] = guid
	}

	addField := func(key, value string) {
		if value == "" {
			return
		}
		extension[key] = value
	}
	addField("Extension", input.Extension)
	addField("TypeInfo", input.TypeInfo)
	addField("CallerDisplayType", input.CallerDisplayType)
	addField("Module", input.Module)
	addField("Port", input.Port)
	addField("Location", input.Location)

	return map[string]any{
		"data": map[string]any{
			"ws_object": map[string]any{
				"Extension": extension,
			},
		},
	}
}

// sendExtensionResult surfaces an application-level appliance failure from a
// mutating call as a bad gateway with the appliance's own description.
func (h *ApplianceHandler) sendExtensionResult(w http.ResponseWriter, r *http.Request, resp ipo.RawResponse) {
	raw := h.deps.ReturnRaw(r)

	if desc := ipo.ParseErrorDesc(resp.Body); desc != "" {
		out := map[string]any{"ok": false, "error": desc}
		if raw {
			out["raw"] = resp.Body
		}
		common.SendJSON(w, http.StatusBadGateway, out)
		return
	}

	out := map[string]any{
		"ok": true,
		"meta": upstreamMeta{
			UpstreamStatus:      resp.Status,
			UpstreamContentType: resp.ContentType,
		},
	}
	if raw {
		out["raw"] = resp.Body
	}
	common.SendJSON(w, http.StatusOK, out)
}

// CreateExtension handles POST /api/v1/server-configs/{id}/extensions
func (h *ApplianceHandler) CreateExtension(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[ExtensionInput](w, r)
	if !ok {
		return
	}

	input.Extension = strings.TrimSpace(input.Extension)
	if input.Extension == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "extension is required for create", nil)
		return
	}

	resp, err := h.call(r.Context(), creds, extensionsPath, http.MethodPost, buildExtensionPayload("", input))
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}
	h.sendExtensionResult(w, r, resp)
}

// UpdateExtension handles PUT /api/v1/server-configs/{id}/extensions
func (h *ApplianceHandler) UpdateExtension(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[ExtensionInput](w, r)
	if !ok {
		return
	}

	guid := strings.TrimSpace(input.GUID)
	if guid == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "guid is required", nil)
		return
	}

	resp, err := h.call(r.Context(), creds, extensionsPath, http.MethodPut, buildExtensionPayload(guid, input))
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}
	h.sendExtensionResult(w, r, resp)
}

// DeleteExtension handles DELETE /api/v1/server-configs/{id}/extensions
func (h *ApplianceHandler) DeleteExtension(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[ExtensionInput](w, r)
	if !ok {
		return
	}

	guid := strings.TrimSpace(input.GUID)
	if guid == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "guid is required", nil)
		return
	}

	path := extensionsPath + "?guid=" + url.QueryEscape(guid)
	resp, err := h.call(r.Context(), creds, path, http.MethodDelete, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}
	h.sendExtensionResult(w, r, resp)
}
