package ledger

import (
	"log/slog"
	"net/http"
)

// Server is the HTTP surface the rendering layer talks to. It holds
// no state of its own: every request forwards a command to the
// service and replies with the refreshed data as JSON.
type Server struct {
	service *Service
	codes   CodeSource
	metrics http.Handler
	mux     *http.ServeMux
}

// NewServer creates a new Server with a default mux.
func NewServer(service *Service, codes CodeSource, metrics http.Handler) *Server {
	return NewServerWithMux(service, codes, metrics, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(service *Service, codes CodeSource, metrics http.Handler, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		codes:   codes,
		metrics: metrics,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux.
// Routes go from most specific to least specific to avoid conflicts.
func (s *Server) registerRoutes() {
	// Items
	s.mux.HandleFunc("POST /api/items/{id}/status", s.handleCycleStatus)
	s.mux.HandleFunc("POST /api/items/{id}/quantity", s.handleAdjustQuantity)
	s.mux.HandleFunc("POST /api/items/{id}/barcode", s.handleAttachBarcode)
	s.mux.HandleFunc("POST /api/items/{id}/image", s.handleAttachImage)
	s.mux.HandleFunc("PUT /api/items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("GET /api/items", s.handleListItems)
	s.mux.HandleFunc("POST /api/items", s.handleAddItem)

	// Stores
	s.mux.HandleFunc("DELETE /api/stores/{id}", s.handleDeleteStore)
	s.mux.HandleFunc("GET /api/stores", s.handleListStores)
	s.mux.HandleFunc("POST /api/stores", s.handleAddStore)

	// View
	s.mux.HandleFunc("PUT /api/view/search", s.handleSetSearch)
	s.mux.HandleFunc("PUT /api/view/filter", s.handleSetFilter)
	s.mux.HandleFunc("PUT /api/view/sort", s.handleSetSort)
	s.mux.HandleFunc("GET /api/view", s.handleView)

	// Receipts
	s.mux.HandleFunc("GET /api/receipts/years", s.handleReceiptYears)
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.handleDeleteReceipt)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	s.mux.HandleFunc("POST /api/receipts", s.handleLogReceipt)

	// Dataset
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("GET /", s.handleIndex)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
