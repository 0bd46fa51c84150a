package admin

import (
	"encoding/json"
	"net/http"

	"github.com/clashdesk/clashdesk/pkg/rules"
	"github.com/clashdesk/clashdesk/pkg/snapshot"
)

// ErrorResponse is the JSON body for transport-level failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int    `json:"uptime"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// decodeJSON decodes a request body, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON in request body")
		return false
	}
	return true
}

// handleHealth handles GET /health.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: a.Uptime(),
	})
}

// handleGetConfig handles GET /api/config: the full working document,
// passthrough sections included.
func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := a.manager.Working()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", loadFailure(a.log, err, "load configuration"))
		return
	}
	doc, err := snap.AsMap()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", loadFailure(a.log, err, "encode configuration"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleGetProxies handles GET /api/proxies.
func (a *API) handleGetProxies(w http.ResponseWriter, r *http.Request) {
	proxies, err := a.manager.ProxyNames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", loadFailure(a.log, err, "list proxies"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proxies": proxies})
}

// handleGetProxyGroups handles GET /api/proxy-groups.
func (a *API) handleGetProxyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.manager.Groups()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", loadFailure(a.log, err, "list proxy groups"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proxy-groups": groups})
}

// handleGetRules handles GET /api/rules.
func (a *API) handleGetRules(w http.ResponseWriter, r *http.Request) {
	rs, err := a.manager.Rules()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", loadFailure(a.log, err, "list rules"))
		return
	}
	if rs == nil {
		rs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rs})
}

// decodeGroup reads a group payload. The body is the group document
// itself, with an optional old_name key for renames that is not part of
// the group.
func decodeGroup(w http.ResponseWriter, r *http.Request) (*snapshot.ProxyGroup, string, bool) {
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return nil, "", false
	}
	oldName, _ := body["old_name"].(string)
	delete(body, "old_name")
	return snapshot.GroupFromMap(body), oldName, true
}

// handleAddProxyGroup handles POST /api/proxy-groups/add.
func (a *API) handleAddProxyGroup(w http.ResponseWriter, r *http.Request) {
	g, _, ok := decodeGroup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.AddGroup(g))
}

// handleUpdateProxyGroup handles POST /api/proxy-groups/update.
func (a *API) handleUpdateProxyGroup(w http.ResponseWriter, r *http.Request) {
	g, oldName, ok := decodeGroup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.UpdateGroup(oldName, g))
}

// handleDeleteProxyGroup handles POST /api/proxy-groups/delete.
func (a *API) handleDeleteProxyGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.DeleteGroup(req.Name))
}

// ruleRequest carries rule editing payloads. Index and Direction are only
// read by the operations that need them.
type ruleRequest struct {
	rules.Rule
	Index     *int   `json:"index"`
	Direction string `json:"direction"`
}

// handleAddRule handles POST /api/rules/add.
func (a *API) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.AddRule(req.Rule))
}

// handleUpdateRule handles POST /api/rules/update.
func (a *API) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "missing_index", "rule index required")
		return
	}
	writeJSON(w, http.StatusOK, a.manager.UpdateRule(*req.Index, req.Rule))
}

// handleDeleteRule handles POST /api/rules/delete.
func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "missing_index", "rule index required")
		return
	}
	writeJSON(w, http.StatusOK, a.manager.DeleteRule(*req.Index))
}

// handleMoveRule handles POST /api/rules/move.
func (a *API) handleMoveRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "missing_index", "rule index required")
		return
	}
	dir, err := rules.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_direction", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.manager.MoveRule(*req.Index, dir))
}

// handleRefreshConfig handles POST /api/config/refresh.
func (a *API) handleRefreshConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubscriptionURL string `json:"subscription_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.RefreshSubscription(r.Context(), req.SubscriptionURL))
}

// handleExportConfig handles GET /api/config/export.
func (a *API) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	out, err := a.manager.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", loadFailure(a.log, err, "export configuration"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"config": out})
}

// handleSaveModification handles POST /api/modifications/save.
func (a *API) handleSaveModification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.SaveModification(req.Name, req.Description))
}

// handleListModifications handles GET /api/modifications/list.
func (a *API) handleListModifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.manager.ListModifications()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", loadFailure(a.log, err, "list modifications"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modifications": list})
}

// handleApplyModification handles POST /api/modifications/apply.
func (a *API) handleApplyModification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.ApplyModification(req.Filename))
}

// handleDeleteModification handles POST /api/modifications/delete.
func (a *API) handleDeleteModification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.manager.DeleteModification(req.Filename))
}
