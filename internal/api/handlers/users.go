package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
)

const usersPath = "/admin/v1/users"

// ListUsers handles GET /api/v1/server-configs/{id}/users
func (h *ApplianceHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}

	resp, err := h.call(r.Context(), creds, usersPath, http.MethodGet, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	parsed := ipo.ParseUsers(resp.Body)

	out := map[string]any{
		"users": parsed.Records,
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

// UpdateUserInput carries the editable user fields. Boolean-ish fields
// accept true/false, "true"/"false" and "yes"/"no".
type UpdateUserInput struct {
	GUID                  string `json:"guid" validate:"required,min=1"`
	Name                  string `json:"name"`
	FullName              string `json:"fullName"`
	Extension             string `json:"extension"`
	AssignedPackage       string `json:"assignedPackage"`
	CanIntrude            any    `json:"canIntrude"`
	CannotBeIntruded      any    `json:"cannotBeIntruded"`
	DNDExceptions         string `json:"dndExceptions"`
	DoNotDisturb          any    `json:"doNotDisturb"`
	ExpansionType         string `json:"expansionType"`
	Flare                 any    `json:"flare"`
	FlareEnabled          any    `json:"flareEnabled"`
	ForceAccountCode      any    `json:"forceAccountCode"`
	IdleLinePreference    any    `json:"idleLinePreference"`
	LoginCode             string `json:"loginCode"`
	MobilityFeatures      any    `json:"mobilityFeatures"`
	OneXClient            any    `json:"oneXClient"`
	OneXTelecommuter      any    `json:"oneXTelecommuter"`
	OutgoingCallBar       any    `json:"outgoingCallBar"`
	OutOfHoursUserRights  string `json:"outOfHoursUserRights"`
	UserRightsTimeProfile string `json:"userRightsTimeProfile"`
	Password              string `json:"password"`
	PhoneType             string `json:"phoneType"`
	Priority              string `json:"priority"`
	Receptionist          any    `json:"receptionist"`
	RemoteWorker          any    `json:"remoteWorker"`
	SIPContact            string `json:"sipContact"`
	SIPName               string `json:"sipName"`
	SpecificBstType       string `json:"specificBstType"`
	TwinningType          string `json:"twinningType"`
	UMSWebServices        any    `json:"umsWebServices"`
	UserRights            string `json:"userRights"`
	VoicemailCode         string `json:"voicemailCode"`
	VoicemailEmail        string `json:"voicemailEmail"`
	VoicemailOn           any    `json:"voicemailOn"`
	WebCollaboration      any    `json:"webCollaboration"`
	XDirectory            any    `json:"xDirectory"`
}

// normalizeBoolean maps the accepted boolean spellings onto the appliance's
// "true"/"false" strings. Absent values map to "". Unrecognized input is an
// error so typos don't silently clear a setting.
func normalizeBoolean(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "":
			return "", nil
		case "true", "yes":
			return "true", nil
		case "false", "no":
			return "false", nil
		}
	}
	return "", fmt.Errorf("not a recognizable boolean: %v", v)
}

// buildUserPayload assembles the full update envelope the appliance expects.
// All fields are always present (blank when unset); the password is only
// included when a new one was supplied.
func buildUserPayload(guid string, input UpdateUserInput) (map[string]any, error) {
	user := map[string]string{
		"@GUID":                 guid,
		"Name":                  input.Name,
		"FullName":              input.FullName,
		"Extension":             input.Extension,
		"AssignedPackage":       input.AssignedPackage,
		"DNDExceptions":         input.DNDExceptions,
		"ExpansionType":         input.ExpansionType,
		"LoginCode":             input.LoginCode,
		"OutOfHoursUserRights":  input.OutOfHoursUserRights,
		"UserRightsTimeProfile": input.UserRightsTimeProfile,
		"PhoneType":             input.PhoneType,
		"Priority":              input.Priority,
		"SIPContact":            input.SIPContact,
		"SIPName":               input.SIPName,
		"SpecificBstType":       input.SpecificBstType,
		"TwinningType":          input.TwinningType,
		"UserRights":            input.UserRights,
		"VoicemailCode":         input.VoicemailCode,
		"VoicemailEmail":        input.VoicemailEmail,
	}

	booleans := map[string]any{
		"CanIntrude":         input.CanIntrude,
		"CannotBeIntruded":   input.CannotBeIntruded,
		"DoNotDisturb":       input.DoNotDisturb,
		"Flare":              input.Flare,
		"FlareEnabled":       input.FlareEnabled,
		"ForceAccountCode":   input.ForceAccountCode,
		"IdleLinePreference": input.IdleLinePreference,
		"MobilityFeatures":   input.MobilityFeatures,
		"OneXClient":         input.OneXClient,
		"OneXTelecommuter":   input.OneXTelecommuter,
		"OutgoingCallBar":    input.OutgoingCallBar,
		"Receptionist":       input.Receptionist,
		"RemoteWorker":       input.RemoteWorker,
		"UMSWebServices":     input.UMSWebServices,
		"VoicemailOn":        input.VoicemailOn,
		"WebCollaboration":   input.WebCollaboration,
		"XDirectory":         input.XDirectory,
	}
	for field, value := range booleans {
		normalized, err := normalizeBoolean(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value for %s", lowerFirst(field))
		}
		user[field] = normalized
	}

	if strings.TrimSpace(input.Password) != "" {
		user["Password"] = input.Password
	}

	return map[string]any{
		"response": map[string]any{
			"@status": "1",
			"data": map[string]any{
				"ws_object": map[string]any{
					"User": user,
				},
			},
		},
	}, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// UpdateUser handles POST /api/v1/server-configs/{id}/users
func (h *ApplianceHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[UpdateUserInput](w, r)
	if !ok {
		return
	}

	guid := strings.TrimSpace(input.GUID)
	if guid == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "guid is required", nil)
		return
	}

	payload, err := buildUserPayload(guid, input)
	if err != nil {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	path := usersPath + "?guid=" + url.QueryEscape(guid)
	resp, err := h.call(r.Context(), creds, path, http.MethodPut, payload)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	out := map[string]any{
		"ok": true,
		"meta": upstreamMeta{
			UpstreamStatus:      resp.Status,
			UpstreamContentType: resp.ContentType,
		},
	}
	if h.deps.ReturnRaw(r) {
		out["raw"] = resp.Body
	}
	common.SendJSON(w, http.StatusOK, out)
}

// DeleteUserInput identifies the user to remove.
type DeleteUserInput struct {
	GUID string `json:"guid" validate:"required,min=1"`
}

// DeleteUser handles DELETE /api/v1/server-configs/{id}/users
func (h *ApplianceHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	_, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[DeleteUserInput](w, r)
	if !ok {
		return
	}

	guid := strings.TrimSpace(input.GUID)
	if guid == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "guid is required", nil)
		return
	}

	path := usersPath + "?guid=" + url.QueryEscape(guid)
	resp, err := h.call(r.Context(), creds, path, http.MethodDelete, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	out := map[string]any{
		"ok": true,
		"meta": upstreamMeta{
			UpstreamStatus:      resp.Status,
			UpstreamContentType: resp.ContentType,
		},
	}
	if h.deps.ReturnRaw(r) {
		out["raw"] = resp.Body
	}
	common.SendJSON(w, http.StatusOK, out)
}
