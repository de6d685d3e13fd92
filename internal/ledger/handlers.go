package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// serviceError maps a service failure onto an HTTP status.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		corsError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrStoreLimit):
		corsError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidDocument):
		corsError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Request failed", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleIndex describes the API; there is no embedded UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "essentials-ledger",
		"endpoints": []string{
			"GET /api/items", "POST /api/items", "PUT /api/items/{id}", "DELETE /api/items/{id}",
			"POST /api/items/{id}/status", "POST /api/items/{id}/quantity",
			"POST /api/items/{id}/barcode", "POST /api/items/{id}/image",
			"GET /api/stores", "POST /api/stores", "DELETE /api/stores/{id}",
			"GET /api/view", "PUT /api/view/search", "PUT /api/view/filter", "PUT /api/view/sort",
			"GET /api/receipts", "POST /api/receipts", "DELETE /api/receipts/{id}", "GET /api/receipts/years",
			"GET /api/categories", "GET /api/export", "POST /api/import",
			"GET /metrics",
		},
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Items())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var raw Item
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	item, err := s.service.AddItem(raw)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var raw Item
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	raw.ID = r.PathValue("id")
	item, err := s.service.UpdateItem(raw)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCycleStatus(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.CycleStatus(r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	item, err := s.service.AdjustQuantity(r.PathValue("id"), req.Delta)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleAttachBarcode stores the supplied code, or fabricates one
// when the request carries none.
func (s *Server) handleAttachBarcode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Barcode string `json:"barcode"`
	}
	if r.Body != nil {
		// An empty body means "capture one for me".
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Barcode == "" {
		req.Barcode = s.codes.Capture()
	}
	item, err := s.service.AttachBarcode(r.PathValue("id"), req.Barcode)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleAttachImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	item, err := s.service.AttachImage(r.PathValue("id"), req.ImageURL)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stores())
}

func (s *Server) handleAddStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	store, err := s.service.AddStore(req.Name)
	if err != nil {
		if errors.Is(err, ErrStoreLimit) {
			serviceError(w, err)
			return
		}
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStore(r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Visible())
}

func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.SetSearch(req.Term))
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filter StatusFilter `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !ValidStatusFilter(req.Filter) {
		corsError(w, fmt.Sprintf("Unknown filter %q", req.Filter), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.SetStatusFilter(req.Filter))
}

func (s *Server) handleSetSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field     SortField `json:"field"`
		Direction Direction `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !ValidSortField(req.Field) {
		corsError(w, fmt.Sprintf("Unknown sort field %q", req.Field), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.SetSort(req.Field, req.Direction))
}

// handleListReceipts filters by ?year= and ?month= when given;
// anything unparsable means "all".
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	writeJSON(w, http.StatusOK, s.service.ListReceipts(year, month))
}

func (s *Server) handleLogReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilterLabel string `json:"filterLabel"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	receipt, err := s.service.LogReceipt(req.FilterLabel)
	if err != nil {
		serviceError(w, err)
		return
	}
	if receipt == nil {
		// Nothing visible, nothing logged.
		setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleReceiptYears offers the year filter options: "all" plus the
// distinct years receipts exist for, newest first.
func (s *Server) handleReceiptYears(w http.ResponseWriter, r *http.Request) {
	years := []string{"all"}
	for _, y := range s.service.ReceiptYears() {
		years = append(years, strconv.Itoa(y))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"years": years})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DefaultCategories)
}

// handleExport downloads the dataset as a JSON document. An empty
// dataset produces no file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Export()
	if err != nil {
		if errors.Is(err, ErrNothingToExport) {
			setCORSHeaders(w)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		serviceError(w, err)
		return
	}
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=essentials-ledger-%s.json", time.Now().Format("2006-01-02")))
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		corsError(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	if err := s.service.Import(raw); err != nil {
		slog.Error("Import rejected", "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Visible())
}
