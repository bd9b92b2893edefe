package app

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lawchain/api/internal/advisor"
	"lawchain/api/internal/config"
	"lawchain/api/internal/export"
	"lawchain/api/internal/metrics"
	"lawchain/api/internal/notify"
	"lawchain/api/internal/search"
	"lawchain/api/internal/store"
)

// CaseInput carries the client-supplied fields for creating a case.
type CaseInput struct {
	Title         string `json:"case_title"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`
	LawyerName    string `json:"lawyer_name"`
	LawyerEmail   string `json:"lawyer_email"`
	CaseType      string `json:"case_type"`
	Description   string `json:"description"`
	ClientWallet  string `json:"client_wallet"`
	LawyerWallet  string `json:"lawyer_wallet"`
}

// CaseUpdateInput carries the mutable fields for a full case update.
// Status and wallet identifiers are never changed through it.
type CaseUpdateInput struct {
	Title         string `json:"case_title"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`
	LawyerName    string `json:"lawyer_name"`
	LawyerEmail   string `json:"lawyer_email"`
	CaseType      string `json:"case_type"`
	Description   string `json:"description"`
}

type HearingInput struct {
	CaseID      int64  `json:"case_id"`
	HearingDate string `json:"hearing_date"`
	HearingTime string `json:"hearing_time"`
	CourtName   string `json:"court_name"`
	Notes       string `json:"notes"`
}

type ChatInput struct {
	Message string `json:"message"`
	CaseID  int64  `json:"case_id"`
	Context string `json:"context"`
}

type SummarizeInput struct {
	CaseID       int64  `json:"case_id"`
	DocumentText string `json:"document_text"`
}

type NoticeInput struct {
	CaseType  string `json:"case_type"`
	PartyFrom string `json:"party_from"`
	PartyTo   string `json:"party_to"`
	Issue     string `json:"issue"`
}

type dataStore interface {
	InsertCase(context.Context, store.Case) (int64, error)
	GetCase(context.Context, int64) (store.Case, error)
	ListCases(context.Context) ([]store.Case, error)
	SearchCases(context.Context, string) ([]store.Case, error)
	UpdateCase(context.Context, int64, store.CaseUpdate) error
	UpdateCaseStatus(context.Context, int64, string) error
	DeleteCaseCascade(context.Context, int64) error
	CaseStats(context.Context) (store.CaseStats, error)
	GetCaseContext(context.Context, int64) (string, string, string, error)
	InsertDocument(context.Context, store.Document) (int64, error)
	ListDocumentsByCase(context.Context, int64) ([]store.Document, error)
	GetDocumentByHash(context.Context, string) (store.Document, error)
	InsertHearing(context.Context, store.Hearing) (int64, error)
	ListHearingsByCase(context.Context, int64) ([]store.Hearing, error)
	Ping(ctx context.Context) error
}

type aiClient interface {
	IsConfigured() bool
	ProviderLabel() string
	Chat(ctx context.Context, message, caseContext, extraContext string) (string, error)
	Summarize(ctx context.Context, documentText string) (string, error)
	GenerateNotice(ctx context.Context, caseType, partyFrom, partyTo, issue string) (string, error)
}

type caseSearch interface {
	Search(ctx context.Context, query string) ([]store.Case, error)
	IndexCase(c store.Case)
	DeleteCase(caseID int64)
}

type notifier interface {
	IsConfigured() bool
	SendHearingNotice(to string, notice notify.HearingNotice) error
}

type Service struct {
	cfg    config.Config
	store  dataStore
	ai     aiClient
	search caseSearch
	notify notifier
	log    zerolog.Logger
}

func New(cfg config.Config, dataStore *store.PostgresStore, ai *advisor.Client, searchSvc *search.Service, notifySvc *notify.Service, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  dataStore,
		ai:     ai,
		search: searchSvc,
		notify: notifySvc,
		log:    log,
	}
}

// hashContent derives a document's identity: SHA-256 of the raw bytes,
// rendered as lowercase hex.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (s *Service) CreateCase(ctx context.Context, input CaseInput) (map[string]any, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case_title is required", nil)
	}

	caseID, err := s.store.InsertCase(ctx, store.Case{
		Title:         input.Title,
		ClientName:    input.ClientName,
		ClientEmail:   input.ClientEmail,
		ClientAddress: input.ClientAddress,
		LawyerName:    input.LawyerName,
		LawyerEmail:   input.LawyerEmail,
		CaseType:      input.CaseType,
		Description:   input.Description,
		ClientWallet:  input.ClientWallet,
		LawyerWallet:  input.LawyerWallet,
	})
	if err != nil {
		return nil, err
	}

	s.reindexCase(ctx, caseID)

	return map[string]any{
		"success": true,
		"case_id": caseID,
		"message": "Case created successfully",
	}, nil
}

func (s *Service) ListCases(ctx context.Context) (map[string]any, error) {
	cases, err := s.store.ListCases(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(cases))
	for _, c := range cases {
		items = append(items, caseSummary(c))
	}
	return map[string]any{"cases": items}, nil
}

func (s *Service) GetCase(ctx context.Context, caseID int64) (map[string]any, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return caseObject(c), nil
}

func (s *Service) UpdateCase(ctx context.Context, caseID int64, input CaseUpdateInput) (map[string]any, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case_title is required", nil)
	}

	err := s.store.UpdateCase(ctx, caseID, store.CaseUpdate{
		Title:         input.Title,
		ClientName:    input.ClientName,
		ClientEmail:   input.ClientEmail,
		ClientAddress: input.ClientAddress,
		LawyerName:    input.LawyerName,
		LawyerEmail:   input.LawyerEmail,
		CaseType:      input.CaseType,
		Description:   input.Description,
	})
	if err != nil {
		return nil, err
	}

	s.reindexCase(ctx, caseID)

	return map[string]any{
		"success": true,
		"message": "Case updated successfully",
	}, nil
}

func (s *Service) UpdateCaseStatus(ctx context.Context, caseID int64, status string) (map[string]any, error) {
	if strings.TrimSpace(status) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status is required", nil)
	}

	if err := s.store.UpdateCaseStatus(ctx, caseID, status); err != nil {
		return nil, err
	}

	s.reindexCase(ctx, caseID)

	return map[string]any{
		"success": true,
		"message": "Status updated successfully",
	}, nil
}

func (s *Service) DeleteCase(ctx context.Context, caseID int64) (map[string]any, error) {
	if err := s.store.DeleteCaseCascade(ctx, caseID); err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.DeleteCase(caseID)
	}

	return map[string]any{
		"success": true,
		"message": "Case deleted successfully",
	}, nil
}

func (s *Service) SearchCases(ctx context.Context, query string) (map[string]any, error) {
	var (
		cases []store.Case
		err   error
	)
	if s.search != nil {
		cases, err = s.search.Search(ctx, query)
	} else {
		cases, err = s.store.SearchCases(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(cases))
	for _, c := range cases {
		items = append(items, caseSummary(c))
	}
	return map[string]any{"cases": items}, nil
}

func (s *Service) CaseStats(ctx context.Context) (map[string]any, error) {
	stats, err := s.store.CaseStats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total":   stats.Total,
		"active":  stats.Active,
		"closed":  stats.Closed,
		"pending": stats.Pending,
	}, nil
}

func (s *Service) UploadDocument(ctx context.Context, caseID int64, name, docType, uploadedBy string, content []byte) (map[string]any, error) {
	if caseID <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case_id is required", nil)
	}
	if len(content) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file content is required", nil)
	}

	hash := hashContent(content)
	docID, err := s.store.InsertDocument(ctx, store.Document{
		CaseID:     caseID,
		Name:       name,
		Hash:       hash,
		Type:       docType,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":       true,
		"document_id":   docID,
		"document_hash": hash,
		"message":       "Document uploaded successfully",
	}, nil
}

func (s *Service) ListDocuments(ctx context.Context, caseID int64) (map[string]any, error) {
	documents, err := s.store.ListDocumentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(documents))
	for _, d := range documents {
		items = append(items, map[string]any{
			"doc_id":        d.ID,
			"document_name": d.Name,
			"document_hash": d.Hash,
			"document_type": d.Type,
			"uploaded_by":   d.UploadedBy,
			"uploaded_at":   d.UploadedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"documents": items}, nil
}

func (s *Service) VerifyDocument(ctx context.Context, hash string) (map[string]any, error) {
	if strings.TrimSpace(hash) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "document_hash is required", nil)
	}

	doc, err := s.store.GetDocumentByHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{
			"verified": false,
			"message":  "Document not found in blockchain",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"verified":      true,
		"document_name": doc.Name,
		"uploaded_by":   doc.UploadedBy,
		"uploaded_at":   doc.UploadedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) CreateHearing(ctx context.Context, input HearingInput) (map[string]any, error) {
	if input.CaseID <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "case_id is required", nil)
	}
	date, err := time.Parse("2006-01-02", input.HearingDate)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "hearing_date must be formatted YYYY-MM-DD", nil)
	}

	hearingID, err := s.store.InsertHearing(ctx, store.Hearing{
		CaseID:    input.CaseID,
		Date:      date,
		Time:      input.HearingTime,
		CourtName: input.CourtName,
		Notes:     input.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.notifyHearing(ctx, input, date)

	return map[string]any{
		"success":    true,
		"hearing_id": hearingID,
		"message":    "Hearing added successfully",
	}, nil
}

// notifyHearing emails the client when SMTP is configured. Delivery failures
// are logged and never reach the API caller.
func (s *Service) notifyHearing(ctx context.Context, input HearingInput, date time.Time) {
	if s.notify == nil || !s.notify.IsConfigured() {
		return
	}
	c, err := s.store.GetCase(ctx, input.CaseID)
	if err != nil || c.ClientEmail == "" {
		return
	}

	notice := notify.HearingNotice{
		ClientName:  c.ClientName,
		CaseTitle:   c.Title,
		HearingDate: date.Format("January 2, 2006"),
		HearingTime: input.HearingTime,
		CourtName:   input.CourtName,
		Notes:       input.Notes,
	}
	if err := s.notify.SendHearingNotice(c.ClientEmail, notice); err != nil {
		s.log.Warn().Err(err).Int64("case_id", input.CaseID).Msg("hearing notice not sent")
	}
}

func (s *Service) ListHearings(ctx context.Context, caseID int64) (map[string]any, error) {
	hearings, err := s.store.ListHearingsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(hearings))
	for _, h := range hearings {
		items = append(items, map[string]any{
			"hearing_id":   h.ID,
			"hearing_date": h.Date.Format("2006-01-02"),
			"hearing_time": h.Time,
			"court_name":   h.CourtName,
			"notes":        h.Notes,
			"created_at":   h.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"hearings": items}, nil
}

func (s *Service) Chat(ctx context.Context, input ChatInput) (map[string]any, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
	}

	caseContext, err := s.buildCaseContext(ctx, input.CaseID)
	if err != nil {
		return nil, err
	}

	text, err := s.ai.Chat(ctx, input.Message, caseContext, input.Context)
	observeAI("chat", err)
	if err != nil {
		return nil, aiFailure(err)
	}

	return map[string]any{
		"response":  text,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) Summarize(ctx context.Context, input SummarizeInput) (map[string]any, error) {
	if strings.TrimSpace(input.DocumentText) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "document_text is required", nil)
	}

	text, err := s.ai.Summarize(ctx, input.DocumentText)
	observeAI("summarize", err)
	if err != nil {
		return nil, aiFailure(err)
	}

	return map[string]any{
		"summary": text,
		"case_id": input.CaseID,
	}, nil
}

func (s *Service) GenerateNotice(ctx context.Context, input NoticeInput) (map[string]any, error) {
	text, err := s.ai.GenerateNotice(ctx, input.CaseType, input.PartyFrom, input.PartyTo, input.Issue)
	observeAI("generate_notice", err)
	if err != nil {
		return nil, aiFailure(err)
	}

	return map[string]any{
		"notice":       text,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) ExportNotice(ctx context.Context, input NoticeInput, format export.Format) (*export.Result, error) {
	text, err := s.ai.GenerateNotice(ctx, input.CaseType, input.PartyFrom, input.PartyTo, input.Issue)
	observeAI("generate_notice", err)
	if err != nil {
		return nil, aiFailure(err)
	}

	return export.Export(export.NoticeData{
		CaseType:    input.CaseType,
		PartyFrom:   input.PartyFrom,
		PartyTo:     input.PartyTo,
		Issue:       input.Issue,
		Body:        text,
		GeneratedAt: time.Now().UTC(),
	}, format)
}

// buildCaseContext renders the case summary line injected into chat prompts.
// An unknown case id contributes no context rather than failing the request.
func (s *Service) buildCaseContext(ctx context.Context, caseID int64) (string, error) {
	if caseID == 0 {
		return "", nil
	}
	title, caseType, description, err := s.store.GetCaseContext(ctx, caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Case Context - Title: %s, Type: %s, Description: %s", title, caseType, description), nil
}

// AIProviderLabel reports the configured provider for the health endpoint.
func (s *Service) AIProviderLabel() string {
	return s.ai.ProviderLabel()
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) reindexCase(ctx context.Context, caseID int64) {
	if s.search == nil {
		return
	}
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		s.log.Warn().Err(err).Int64("case_id", caseID).Msg("case not reindexed")
		return
	}
	s.search.IndexCase(c)
}

func caseSummary(c store.Case) map[string]any {
	return map[string]any{
		"case_id":     c.ID,
		"case_title":  c.Title,
		"client_name": c.ClientName,
		"lawyer_name": c.LawyerName,
		"case_type":   c.CaseType,
		"status":      c.Status,
		"created_at":  c.CreatedAt.Format(time.RFC3339),
	}
}

func caseObject(c store.Case) map[string]any {
	return map[string]any{
		"case_id":        c.ID,
		"case_title":     c.Title,
		"client_name":    c.ClientName,
		"client_email":   c.ClientEmail,
		"client_address": c.ClientAddress,
		"lawyer_name":    c.LawyerName,
		"lawyer_email":   c.LawyerEmail,
		"case_type":      c.CaseType,
		"description":    c.Description,
		"client_wallet":  c.ClientWallet,
		"lawyer_wallet":  c.LawyerWallet,
		"blockchain_tx":  c.BlockchainTx,
		"status":         c.Status,
		"created_at":     c.CreatedAt.Format(time.RFC3339),
	}
}

func observeAI(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.AIRequests.WithLabelValues(operation, outcome).Inc()
}

func aiFailure(err error) *DomainError {
	return domainError(http.StatusInternalServerError, "AI_PROVIDER_FAILURE", "AI Error: "+err.Error(), nil)
}
