package server

import "net/http"

// setupRoutes configures all HTTP handlers. Patterns end in {$} so a domain
// route never swallows the entity subtree.
func (s *Server) setupRoutes() {
	api := func(h http.HandlerFunc) http.HandlerFunc {
		return s.corsMiddleware(s.authMiddleware(h))
	}

	s.mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))
	s.mux.HandleFunc("/api/client-check/{$}", api(s.handleClientCheck))

	s.mux.HandleFunc("/api/domains/{$}", api(s.handleDomains))                           // List/create domains (GET/POST)
	s.mux.HandleFunc("/api/domains/{slug}/{$}", api(s.handleDomain))                     // Domain detail (GET)
	s.mux.HandleFunc("/api/domains/{slug}/entities/{$}", api(s.handleEntities))          // List entities / raw create (GET/POST)
	s.mux.HandleFunc("/api/domains/{slug}/entities/{uuid}/{$}", api(s.handleEntity))     // Entity detail (GET/PATCH/DELETE)

	s.mux.HandleFunc("POST /api/domains/{slug}/entities/match/{$}", api(s.handleMatch))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/match-or-create/{$}", api(s.handleMatchOrCreate))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/best-match/{$}", api(s.handleBestMatch))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/best-match-or-create/{$}", api(s.handleBestMatchOrCreate))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/alias-or-create/{$}", api(s.handleAliasOrCreate))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/create-matched-alias/{$}", api(s.handleCreateMatchedAlias))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/update-match/{$}", api(s.handleUpdateMatch))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/delete-match/{$}", api(s.handleDeleteMatch))
	s.mux.HandleFunc("POST /api/domains/{slug}/entities/bulk-create/{$}", api(s.handleBulkCreate))
}
