package handlers

import (
	"net/http"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/store"
)

// ServerConfigHandler handles stored appliance connection profiles
type ServerConfigHandler struct {
	deps *common.Dependencies
}

func NewServerConfigHandler(deps *common.Dependencies) *ServerConfigHandler {
	return &ServerConfigHandler{deps: deps}
}

// CreateServerConfigInput is the payload for creating a server config.
// The appliance password arrives in plaintext and is stored encrypted.
type CreateServerConfigInput struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Host     string `json:"host" validate:"required,min=1,max=255"`
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=1"`
}

// UpdateServerConfigInput is the payload for PATCH; empty fields are kept.
type UpdateServerConfigInput struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// List handles GET /api/v1/server-configs
func (h *ServerConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.deps.Q.ListServerConfigs(r.Context(), common.Owner(r))
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}
	if configs == nil {
		configs = []store.ServerConfig{}
	}
	common.SendListResponse(w, configs, len(configs))
}

// Get handles GET /api/v1/server-configs/{id}
func (h *ServerConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	sc, err := h.deps.Q.GetServerConfig(r.Context(), common.Owner(r), id)
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}
	common.SendJSON(w, http.StatusOK, sc)
}

// Create handles POST /api/v1/server-configs
func (h *ServerConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := common.DecodeJSON[CreateServerConfigInput](w, r)
	if !ok {
		return
	}
	if err := common.ValidateStruct(input); err != nil {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
		return
	}

	cipher, err := h.deps.Encrypt([]byte(input.Password))
	if err != nil {
		common.SendError(w, r, http.StatusInternalServerError, "ENCRYPT_ERROR", "Failed to encrypt password", nil)
		return
	}

	sc, err := h.deps.Q.CreateServerConfig(r.Context(), store.ServerConfig{
		Owner:     common.Owner(r),
		Name:      input.Name,
		Host:      input.Host,
		Username:  input.Username,
		PwdCipher: cipher,
	})
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}
	common.SendJSON(w, http.StatusCreated, sc)
}

// Update handles PATCH /api/v1/server-configs/{id}
func (h *ServerConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	input, ok := common.DecodeJSON[UpdateServerConfigInput](w, r)
	if !ok {
		return
	}

	owner := common.Owner(r)
	sc, err := h.deps.Q.GetServerConfig(r.Context(), owner, id)
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}

	if input.Name != "" {
		sc.Name = input.Name
	}
	if input.Host != "" {
		sc.Host = input.Host
	}
	if input.Username != "" {
		sc.Username = input.Username
	}
	if input.Password != "" {
		cipher, err := h.deps.Encrypt([]byte(input.Password))
		if err != nil {
			common.SendError(w, r, http.StatusInternalServerError, "ENCRYPT_ERROR", "Failed to encrypt password", nil)
			return
		}
		sc.PwdCipher = cipher
	}

	updated, err := h.deps.Q.UpdateServerConfig(r.Context(), sc)
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}
	common.SendJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/server-configs/{id}
func (h *ServerConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	err := h.deps.Q.DeleteServerConfig(r.Context(), common.Owner(r), id)
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}
	common.SendJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
