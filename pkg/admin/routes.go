// Route registration for the admin API.

package admin

import (
	"net/http"
)

// registerRoutes sets up all API routes.
func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)

	// Snapshot views
	mux.HandleFunc("GET /api/config", a.handleGetConfig)
	mux.HandleFunc("GET /api/proxies", a.handleGetProxies)
	mux.HandleFunc("GET /api/proxy-groups", a.handleGetProxyGroups)
	mux.HandleFunc("GET /api/rules", a.handleGetRules)

	// Proxy group editing
	mux.HandleFunc("POST /api/proxy-groups/add", a.handleAddProxyGroup)
	mux.HandleFunc("POST /api/proxy-groups/update", a.handleUpdateProxyGroup)
	mux.HandleFunc("POST /api/proxy-groups/delete", a.handleDeleteProxyGroup)

	// Rule editing
	mux.HandleFunc("POST /api/rules/add", a.handleAddRule)
	mux.HandleFunc("POST /api/rules/update", a.handleUpdateRule)
	mux.HandleFunc("POST /api/rules/delete", a.handleDeleteRule)
	mux.HandleFunc("POST /api/rules/move", a.handleMoveRule)

	// Subscription and export
	mux.HandleFunc("POST /api/config/refresh", a.handleRefreshConfig)
	mux.HandleFunc("GET /api/config/export", a.handleExportConfig)

	// Saved modifications
	mux.HandleFunc("POST /api/modifications/save", a.handleSaveModification)
	mux.HandleFunc("GET /api/modifications/list", a.handleListModifications)
	mux.HandleFunc("POST /api/modifications/apply", a.handleApplyModification)
	mux.HandleFunc("POST /api/modifications/delete", a.handleDeleteModification)
}
