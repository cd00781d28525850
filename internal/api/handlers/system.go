package handlers

import (
	"net/http"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/auth"
)

// SystemHandler handles authentication and other system-level endpoints
type SystemHandler struct {
	deps *common.Dependencies
}

func NewSystemHandler(deps *common.Dependencies) *SystemHandler {
	return &SystemHandler{deps: deps}
}

// Login handles POST /api/v1/login
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	input, ok := common.DecodeJSON[auth.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.deps.Auth.Login(input.Username, input.Password)
	if err != nil {
		h.deps.Logger.Warn("Login failed", "username", input.Username, "ip", r.RemoteAddr)
		common.SendError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
		return
	}

	common.SendJSON(w, http.StatusOK, resp)
}
