package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
	"github.com/dlt194/ipn-webmanager/internal/reachability"
	"github.com/dlt194/ipn-webmanager/internal/store"
)

const statusProbeTimeout = 2500 * time.Millisecond

// GetStats handles GET /api/v1/server-configs/{id}/stats. It serves the
// cached baseline; a config that has never been synced gets a null baseline,
// not an error.
func (h *ApplianceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	owner := common.Owner(r)
	if _, err := h.deps.Q.GetServerConfig(r.Context(), owner, id); common.HandleDBError(w, r, err, "Server config") {
		return
	}

	baseline, err := h.deps.Q.GetStatsBaseline(r.Context(), owner, id)
	if errors.Is(err, pgx.ErrNoRows) {
		common.SendJSON(w, http.StatusOK, map[string]any{"baseline": nil})
		return
	}
	if common.HandleDBError(w, r, err, "Stats baseline") {
		return
	}

	common.SendJSON(w, http.StatusOK, map[string]any{"baseline": baselineView(baseline)})
}

// RefreshStats handles POST /api/v1/server-configs/{id}/stats. It fetches
// the live user list, recomputes the summary and upserts the baseline.
func (h *ApplianceHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	sc, creds, ok := h.loadCredentials(w, r)
	if !ok {
		return
	}

	resp, err := h.call(r.Context(), creds, usersPath, http.MethodGet, nil)
	if err != nil {
		sendUpstreamError(w, r, err)
		return
	}

	stats := ipo.ComputeUserStats(resp.Body)
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		common.SendError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode stats", nil)
		return
	}

	baseline, err := h.deps.Q.UpsertStatsBaseline(r.Context(), store.StatsBaseline{
		ServerConfigID: sc.ID,
		Owner:          sc.Owner,
		TotalUsers:     stats.TotalUsers,
		LicensedCount:  stats.LicensedCount,
		StatsJSON:      statsJSON,
	})
	if common.HandleDBError(w, r, err, "Stats baseline") {
		return
	}

	common.SendJSON(w, http.StatusOK, map[string]any{"baseline": baselineView(baseline)})
}

// baselineView renders a stored baseline with the stats JSON inlined rather
// than base64-encoded bytes.
func baselineView(b store.StatsBaseline) map[string]any {
	return map[string]any{
		"id":             b.ID,
		"serverConfigId": b.ServerConfigID,
		"totalUsers":     b.TotalUsers,
		"licensedCount":  b.LicensedCount,
		"stats":          json.RawMessage(b.StatsJSON),
		"lastSyncedAt":   b.LastSyncedAt,
	}
}

// Status handles GET /api/v1/server-configs/{id}/status with a TCP probe of
// the appliance management port.
func (h *ApplianceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	sc, err := h.deps.Q.GetServerConfig(r.Context(), common.Owner(r), id)
	if common.HandleDBError(w, r, err, "Server config") {
		return
	}

	probe := reachability.Probe(sc.Host, statusProbeTimeout)

	common.SendJSON(w, http.StatusOK, map[string]any{
		"reachable": probe.Reachable,
		"address":   probe.Address,
		"latencyMs": probe.LatencyMS,
		"checkedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
