package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lawchain/api/internal/store"
)

func multipartUploadRequest(t *testing.T, target string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if filename != "" {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestUploadDocumentMultipart(t *testing.T) {
	content := []byte("scanned rental agreement")
	var inserted store.Document
	fs := &fakeStore{
		insertDocumentFn: func(_ context.Context, doc store.Document) (int64, error) {
			inserted = doc
			return 21, nil
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	req := multipartUploadRequest(t, "/api/documents/upload", map[string]string{
		"case_id":       "3",
		"document_name": "agreement.pdf",
		"document_type": "Agreement",
		"uploaded_by":   "Asha Verma",
	}, "agreement.pdf", content)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if inserted.CaseID != 3 || inserted.Name != "agreement.pdf" || inserted.Type != "Agreement" || inserted.UploadedBy != "Asha Verma" {
		t.Errorf("document fields not carried: %+v", inserted)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["document_hash"] != hashContent(content) {
		t.Errorf("response hash %v does not match content hash", response["document_hash"])
	}
	if response["message"] != "Document uploaded successfully" {
		t.Errorf("unexpected message: %v", response["message"])
	}
}

func TestUploadDocumentAcceptsQueryParams(t *testing.T) {
	var inserted store.Document
	fs := &fakeStore{
		insertDocumentFn: func(_ context.Context, doc store.Document) (int64, error) {
			inserted = doc
			return 22, nil
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	target := "/api/documents/upload?case_id=5&document_name=fir.pdf&document_type=Evidence&uploaded_by=R.+Iyer"
	req := multipartUploadRequest(t, target, nil, "fir.pdf", []byte("first information report"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if inserted.CaseID != 5 || inserted.Name != "fir.pdf" || inserted.UploadedBy != "R. Iyer" {
		t.Errorf("query params not honored: %+v", inserted)
	}
}

func TestUploadDocumentJSONBase64(t *testing.T) {
	content := []byte("affidavit text")
	var inserted store.Document
	fs := &fakeStore{
		insertDocumentFn: func(_ context.Context, doc store.Document) (int64, error) {
			inserted = doc
			return 23, nil
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	body := map[string]any{
		"case_id":       4,
		"document_name": "affidavit.txt",
		"document_type": "Affidavit",
		"uploaded_by":   "Asha Verma",
		"content_b64":   base64.StdEncoding.EncodeToString(content),
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if inserted.Hash != hashContent(content) {
		t.Errorf("stored hash %s does not match content hash", inserted.Hash)
	}
	if inserted.CaseID != 4 || inserted.Type != "Affidavit" {
		t.Errorf("document fields not carried: %+v", inserted)
	}
}

func TestUploadDocumentRejectsBadBase64(t *testing.T) {
	server := newTestHTTPServer(newTestService(&fakeStore{}))

	body := `{"case_id":4,"document_name":"x","content_b64":"not base64!!!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestUploadDocumentRequiresFile(t *testing.T) {
	server := newTestHTTPServer(newTestService(&fakeStore{}))

	req := multipartUploadRequest(t, "/api/documents/upload", map[string]string{"case_id": "3"}, "", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["error"] != "file is required" {
		t.Errorf("unexpected error message: %v", response["error"])
	}
}

func TestUploadDocumentDuplicateHash(t *testing.T) {
	fs := &fakeStore{
		insertDocumentFn: func(context.Context, store.Document) (int64, error) {
			return 0, store.ErrDuplicateDocument
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	req := multipartUploadRequest(t, "/api/documents/upload", map[string]string{"case_id": "3"}, "dup.pdf", []byte("same bytes"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["code"] != "DUPLICATE_DOCUMENT" {
		t.Errorf("expected DUPLICATE_DOCUMENT, got %v", response["code"])
	}
}

func TestListDocumentsShape(t *testing.T) {
	fs := &fakeStore{
		listDocumentsByCaseFn: func(_ context.Context, caseID int64) ([]store.Document, error) {
			if caseID != 3 {
				t.Fatalf("expected case 3, got %d", caseID)
			}
			return []store.Document{{
				ID:         7,
				CaseID:     caseID,
				Name:       "agreement.pdf",
				Hash:       strings.Repeat("ab", 32),
				Type:       "Agreement",
				UploadedBy: "Asha Verma",
				UploadedAt: time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC),
			}}, nil
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	req := httptest.NewRequest(http.MethodGet, "/api/documents/3", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	documents, ok := response["documents"].([]any)
	if !ok || len(documents) != 1 {
		t.Fatalf("expected one document row, got %v", response["documents"])
	}
	row := documents[0].(map[string]any)
	if row["doc_id"] != float64(7) {
		t.Errorf("unexpected doc_id: %v", row["doc_id"])
	}
	if row["document_hash"] != strings.Repeat("ab", 32) {
		t.Errorf("unexpected document_hash: %v", row["document_hash"])
	}
	if row["uploaded_at"] != "2024-11-05T09:30:00Z" {
		t.Errorf("unexpected uploaded_at: %v", row["uploaded_at"])
	}
	if _, present := row["case_id"]; present {
		t.Error("document rows must not repeat the case id")
	}
}

func TestVerifyDocumentEndpoint(t *testing.T) {
	fs := &fakeStore{
		getDocumentByHashFn: func(_ context.Context, hash string) (store.Document, error) {
			return store.Document{
				Name:       "agreement.pdf",
				Hash:       hash,
				UploadedBy: "Asha Verma",
				UploadedAt: time.Date(2024, 11, 5, 9, 30, 0, 0, time.UTC),
			}, nil
		},
	}
	server := newTestHTTPServer(newTestService(fs))

	req := httptest.NewRequest(http.MethodPost, "/api/documents/verify", strings.NewReader(`{"document_hash":"abc123"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["verified"] != true {
		t.Errorf("expected verified=true, got %v", response["verified"])
	}
	if response["document_name"] != "agreement.pdf" || response["uploaded_by"] != "Asha Verma" {
		t.Errorf("unexpected verify payload: %v", response)
	}
}

func TestVerifyDocumentEndpointMissing(t *testing.T) {
	server := newTestHTTPServer(newTestService(&fakeStore{}))

	req := httptest.NewRequest(http.MethodPost, "/api/documents/verify", strings.NewReader(`{"document_hash":"deadbeef"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["verified"] != false {
		t.Errorf("expected verified=false, got %v", response["verified"])
	}
	if response["message"] != "Document not found in blockchain" {
		t.Errorf("unexpected message: %v", response["message"])
	}
}
