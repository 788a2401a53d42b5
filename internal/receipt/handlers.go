package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receiptwiser/internal/bill"
	"github.com/zombor/receiptwiser/internal/sharecode"
)

const (
	maxUploadSize = int64(50 << 20) // high resolution phone photos
	maxJSONBody   = int64(10 << 20)

	shareLoadError = "Failed to load receipt data. The link may be invalid or corrupted."
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		slog.Debug("Invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleAnalyzeReceipt scans an uploaded receipt image
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		f, header, err = r.FormFile("file")
	}
	if err != nil {
		slog.Error("Error getting image from form", "error", err)
		writeError(w, "No image provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading image data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeForExt(header.Filename)
	}

	slog.Info("Analyzing receipt", "filename", header.Filename, "content_type", contentType, "size_kb", len(data)/1024)
	receipt, err := s.service.AnalyzeReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		s.countScan("error")
		slog.Error("Error analyzing receipt", "filename", header.Filename, "error", err)
		writeError(w, "Failed to analyze receipt", http.StatusInternalServerError)
		return
	}
	s.countScan("ok")

	writeJSON(w, http.StatusOK, map[string]any{"data": receipt})
}

func contentTypeForExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

func (s *Server) countScan(result string) {
	if s.metrics != nil {
		s.metrics.Scans.WithLabelValues(result).Inc()
	}
}

// handleGetImage serves a stored receipt image
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.GetImage(r.PathValue("name"))
	if errors.Is(err, ErrImageNotFound) {
		writeError(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error reading image", "name", r.PathValue("name"), "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

// handleCreateReceipt saves a receipt and returns its id
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var in bill.Receipt
	if !decodeJSON(w, r, &in) {
		return
	}

	receipt, err := s.service.CreateReceipt(r.Context(), in)
	if err != nil {
		slog.Error("Error creating receipt", "error", err)
		writeError(w, "Failed to create receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": receipt.ID})
}

// handleGetReceipt returns a receipt with its payments
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error getting receipt", "id", r.PathValue("id"), "error", err)
		writeError(w, "Failed to fetch receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleListReceipts returns all receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts(r.Context())
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if receipts == nil {
		receipts = []*bill.Receipt{}
	}

	writeJSON(w, http.StatusOK, receipts)
}

// handleListPayments returns the payments of a receipt
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.service.ListPayments(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Error fetching payments", "receipt_id", r.PathValue("id"), "error", err)
		writeError(w, "Failed to fetch payments", http.StatusInternalServerError)
		return
	}
	if payments == nil {
		payments = []*bill.Payment{}
	}

	writeJSON(w, http.StatusOK, payments)
}

// handleRecordPayment appends a payment to a receipt
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req bill.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := s.service.RecordPayment(r.Context(), r.PathValue("id"), req)
	switch {
	case errors.Is(err, ErrInvalidPayment):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrNotFound):
		writeError(w, "Receipt not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("Error creating payment", "receipt_id", r.PathValue("id"), "error", err)
		writeError(w, "Failed to create payment", http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.Payments.Inc()
	}

	writeJSON(w, http.StatusCreated, payment)
}

// handleComputeBill allocates a receipt to a diner's selection
func (s *Server) handleComputeBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Selections []bill.ItemQuantity `json:"selections"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	userBill, err := s.service.ComputeBill(r.Context(), r.PathValue("id"), req.Selections)
	if errors.Is(err, ErrNotFound) {
		writeError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error computing bill", "receipt_id", r.PathValue("id"), "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, userBill)
}

// handleEditReceipt applies one editor action to a receipt snapshot
func (s *Server) handleEditReceipt(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := s.service.EditReceipt(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleShare returns a share code and link for a receipt
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var in bill.Receipt
	if !decodeJSON(w, r, &in) {
		return
	}

	code, err := s.service.ShareCode(in)
	if err != nil {
		slog.Error("Error creating share code", "error", err)
		writeError(w, "Failed to create share link", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"data": code,
		"url":  sharecode.ShareURL(s.baseURL(r), code),
	})
}

// handleLoadShared rebuilds a receipt from a share code
func (s *Server) handleLoadShared(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.LoadShared(r.PathValue("data"))
	if err != nil {
		slog.Warn("Invalid share code", "error", err)
		if s.metrics != nil {
			s.metrics.ShareDecodeErr.Inc()
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": shareLoadError,
			"home":  "/",
		})
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// baseURL is the configured public URL or one derived from the request
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
