package apiserver

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1alpha1").Subrouter()

	// Health
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	// Toolsets
	api.HandleFunc("/toolsets", s.handleListToolsets).Methods("GET")
	api.HandleFunc("/toolsets/{name}", s.handleGetToolset).Methods("GET")
	api.HandleFunc("/toolsets", s.handleCreateToolset).Methods("POST")
	api.HandleFunc("/toolsets/{name}", s.handleUpdateToolset).Methods("PUT")
	api.HandleFunc("/toolsets/{name}", s.handleDeleteToolset).Methods("DELETE")

	// Runs - creation starts execution asynchronously
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{name}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs", s.handleCreateRun).Methods("POST")
	api.HandleFunc("/runs/{name}", s.handleDeleteRun).Methods("DELETE")
	api.HandleFunc("/runs/{name}/cancel", s.handleCancelRun).Methods("POST")

	// Logs
	api.HandleFunc("/runs/{name}/log", s.handleGetRunLog).Methods("GET")

	// Apply (generic resource creation/update)
	api.HandleFunc("/apply", s.handleApply).Methods("POST")
}
