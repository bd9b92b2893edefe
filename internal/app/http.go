package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lawchain/api/internal/export"
	"lawchain/api/internal/metrics"
	"lawchain/api/internal/ratelimit"
	"lawchain/api/internal/store"
)

// maxUploadMemory caps the in-memory portion of multipart parsing; larger
// files spill to temporary storage.
const maxUploadMemory = 32 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	limiter    ratelimit.Limiter
	log        zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, limiter ratelimit.Limiter, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, limiter: limiter, log: log}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/" {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "LawChain AI API with Groq",
			"status":  "running",
			"version": "2.0",
		})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && (r.URL.Path == "/health" || r.URL.Path == "/api/health") {
		s.handleHealth(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/cases" {
		s.handleCreateCase(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/cases" {
		s.handleListCases(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/cases/stats/overview" {
		s.handleCaseStats(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/documents/upload" {
		s.handleUploadDocument(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/documents/verify" {
		s.handleVerifyDocument(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/hearings" {
		s.handleCreateHearing(w, r)
		return
	}

	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/chat") {
		if !s.allowAI(w, r) {
			return
		}
		if r.URL.Path == "/api/chat" {
			s.handleChatMessage(w, r)
			return
		}
		if r.URL.Path == "/api/chat/summarize" {
			s.handleSummarize(w, r)
			return
		}
		if r.URL.Path == "/api/chat/generate-notice" {
			s.handleGenerateNotice(w, r)
			return
		}
		if r.URL.Path == "/api/chat/generate-notice/export" {
			s.handleExportNotice(w, r)
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "cases" && parts[2] == "search" && r.Method == http.MethodGet {
		s.handleSearchCases(w, r, parts[3])
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "cases" && parts[3] == "status" && r.Method == http.MethodPut {
		caseID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case id must be an integer", nil)
			return
		}
		s.handleUpdateCaseStatus(w, r, caseID)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "cases" {
		caseID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case id must be an integer", nil)
			return
		}
		s.handleCaseByID(w, r, caseID)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "documents" && r.Method == http.MethodGet {
		caseID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case id must be an integer", nil)
			return
		}
		s.handleListDocuments(w, r, caseID)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "hearings" && r.Method == http.MethodGet {
		caseID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case id must be an integer", nil)
			return
		}
		s.handleListHearings(w, r, caseID)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	database := "connected"
	if err := s.service.Ping(ctx); err != nil {
		database = "disconnected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "running",
		"database":    database,
		"ai_provider": s.service.AIProviderLabel(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var body CaseInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.CreateCase(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleListCases(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.ListCases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list cases", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleCaseStats(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.CaseStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load case stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSearchCases(w http.ResponseWriter, r *http.Request, query string) {
	payload, err := s.service.SearchCases(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not search cases", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleCaseByID(w http.ResponseWriter, r *http.Request, caseID int64) {
	if r.Method == http.MethodGet {
		payload, err := s.service.GetCase(r.Context(), caseID)
		if err != nil {
			writeCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodPut {
		var body CaseUpdateInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateCase(r.Context(), caseID, body)
		if err != nil {
			writeCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodDelete {
		payload, err := s.service.DeleteCase(r.Context(), caseID)
		if err != nil {
			writeCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleUpdateCaseStatus(w http.ResponseWriter, r *http.Request, caseID int64) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.UpdateCaseStatus(r.Context(), caseID, body.Status)
	if err != nil {
		writeCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleUploadDocument accepts either a multipart form (file field plus
// case_id/document_name/document_type/uploaded_by values, which may also
// arrive as query parameters) or a JSON body carrying the content base64
// encoded.
func (s *HTTPServer) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	var (
		caseID     int64
		name       string
		docType    string
		uploadedBy string
		content    []byte
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			CaseID     int64  `json:"case_id"`
			Name       string `json:"document_name"`
			Type       string `json:"document_type"`
			UploadedBy string `json:"uploaded_by"`
			ContentB64 string `json:"content_b64"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(body.ContentB64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content_b64 must be valid base64", nil)
			return
		}
		caseID, name, docType, uploadedBy, content = body.CaseID, body.Name, body.Type, body.UploadedBy, decoded
	} else {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart form", nil)
			return
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("case_id")), 10, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case_id must be an integer", nil)
			return
		}
		caseID = parsed
		name = r.FormValue("document_name")
		docType = r.FormValue("document_type")
		uploadedBy = r.FormValue("uploaded_by")

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
			return
		}
		defer file.Close()
		content, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not read uploaded file", nil)
			return
		}
		if name == "" {
			name = header.Filename
		}
	}

	payload, err := s.service.UploadDocument(r.Context(), caseID, name, docType, uploadedBy, content)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentHash string `json:"document_hash"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.VerifyDocument(r.Context(), body.DocumentHash)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request, caseID int64) {
	payload, err := s.service.ListDocuments(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list documents", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleCreateHearing(w http.ResponseWriter, r *http.Request) {
	var body HearingInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.CreateHearing(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleListHearings(w http.ResponseWriter, r *http.Request, caseID int64) {
	payload, err := s.service.ListHearings(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list hearings", nil)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var body ChatInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.Chat(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var body SummarizeInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.Summarize(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleGenerateNotice(w http.ResponseWriter, r *http.Request) {
	var body NoticeInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.GenerateNotice(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleExportNotice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CaseType  string `json:"case_type"`
		PartyFrom string `json:"party_from"`
		PartyTo   string `json:"party_to"`
		Issue     string `json:"issue"`
		Format    string `json:"format"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	format := export.Format(body.Format)
	if format != export.FormatPDF && format != export.FormatDOCX {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf' or 'docx'", nil)
		return
	}

	result, err := s.service.ExportNotice(r.Context(), NoticeInput{
		CaseType:  body.CaseType,
		PartyFrom: body.PartyFrom,
		PartyTo:   body.PartyTo,
		Issue:     body.Issue,
	}, format)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.Write(result.Data)
}

// allowAI applies the per-client rate limit to the AI endpoints. The limiter
// fails open: a broken Redis must not take chat down with it.
func (s *HTTPServer) allowAI(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	ok, retryAfter, err := s.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter check failed")
		return true
	}
	if ok {
		return true
	}

	seconds := int(retryAfter / time.Second)
	if time.Duration(seconds)*time.Second < retryAfter {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many AI requests", nil)
	return false
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, routeLabel(r.URL.Path), strconv.Itoa(writer.status)).Inc()
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// routeLabel collapses variable path segments so the request counter keeps a
// bounded label set.
func routeLabel(path string) string {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "/"
	}
	for i, part := range parts {
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	if len(parts) == 4 && parts[0] == "api" && parts[1] == "cases" && parts[2] == "search" {
		parts[3] = ":query"
	}
	return "/" + strings.Join(parts, "/")
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// writeCaseError renders store failures for a single-case route, translating
// a missing row into the message clients key on.
func writeCaseError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
		return
	}
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrDuplicateDocument) {
		return http.StatusInternalServerError, "DUPLICATE_DOCUMENT", "Document with identical content already exists", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export dependency not installed", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
