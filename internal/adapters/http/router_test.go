package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clauseguard/docengine/internal/config"
	"github.com/clauseguard/docengine/internal/core/domain"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(context.Context, string, string, io.Reader) (*domain.Document, *domain.Workflow, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	doc := &domain.Document{ID: "doc-1", Filename: "a.txt", ContentType: "text/plain", SizeBytes: 12}
	wf := &domain.Workflow{ID: "wf-1", DocumentID: "doc-1", State: domain.StatePending}
	return doc, wf, nil
}

type directoryFake struct {
	getErr error
}

func (f directoryFake) Get(context.Context, string) (*domain.Document, *domain.Workflow, *domain.AnalysisResult, error) {
	if f.getErr != nil {
		return nil, nil, nil, f.getErr
	}
	doc := &domain.Document{ID: "doc-1", Filename: "a.txt"}
	wf := &domain.Workflow{ID: "wf-1", DocumentID: "doc-1", State: domain.StateCompleted, Progress: 100}
	return doc, wf, &domain.AnalysisResult{DocumentID: "doc-1", Summary: "ok"}, nil
}

func (f directoryFake) List(context.Context, int, int) ([]domain.Document, int, error) {
	return []domain.Document{{ID: "doc-1", Filename: "a.txt"}}, 3, nil
}

func (f directoryFake) Delete(context.Context, string) error { return nil }

type statusFake struct {
	wf  *domain.Workflow
	err error
}

func (f statusFake) Status(context.Context, string) (*domain.Workflow, error) {
	return f.wf, f.err
}

func (f statusFake) Result(context.Context, string) (*domain.AnalysisResult, error) {
	return nil, f.err
}

type qaFake struct {
	err error
}

func (f qaFake) Ask(_ context.Context, documentID, question string) (*domain.QAEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.QAEntry{ID: "qa-1", DocumentID: documentID, Question: question, Answer: "42", Status: domain.QAAnswered}, nil
}

func (f qaFake) Answer(context.Context, string) (*domain.QAEntry, error) { return nil, f.err }

func (f qaFake) History(_ context.Context, documentID string) ([]domain.QAEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.QAEntry{{ID: "qa-1", DocumentID: documentID, Status: domain.QAAnswered}}, nil
}

type exportFake struct {
	err error
}

func (f exportFake) Export(context.Context, string, string, []string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte(`{"summary":"ok"}`), "application/json", nil
}

type analyticsFake struct{}

func (analyticsFake) Dashboard(context.Context) (*domain.DashboardStats, error) {
	return &domain.DashboardStats{TotalDocuments: 1}, nil
}

func (analyticsFake) Detailed(context.Context) (*domain.DetailedStats, error) {
	return &domain.DetailedStats{DocumentsProcessed: 1}, nil
}

type handlerOverrides struct {
	ingest ingestFake
	status statusFake
	qa     qaFake
	export exportFake
	dir    directoryFake
}

func newTestHandler(cfg config.Config, o handlerOverrides) http.Handler {
	if o.status.wf == nil && o.status.err == nil {
		o.status.wf = &domain.Workflow{ID: "wf-1", DocumentID: "doc-1", State: domain.StateAnalyzing, Progress: 60, CurrentStep: "AI analysis"}
	}
	return NewRouter(cfg, o.ingest, o.dir, o.status, o.qa, o.export, analyticsFake{}, nil).Handler()
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadReturns202WithIDs(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})
	body, contentType := multipartUpload(t, "a.txt", "hello world!")

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["document_id"] != "doc-1" || resp["workflow_id"] != "wf-1" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestUploadMapsPayloadTooLargeTo413(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{
		ingest: ingestFake{err: domain.WrapError(domain.ErrPayloadTooLarge, "upload", errors.New("too big"))},
	})
	body, contentType := multipartUpload(t, "a.txt", "x")

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestUploadMapsUnsupportedTypeTo415(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{
		ingest: ingestFake{err: domain.WrapError(domain.ErrUnsupportedType, "upload", errors.New("bad ext"))},
	})
	body, contentType := multipartUpload(t, "a.exe", "x")

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", res.Code)
	}
}

func TestWorkflowStatusMapsInternalStatesToProcessing(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/workflows/wf-1/status", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "processing" {
		t.Fatalf("expected public status processing, got %v", resp["status"])
	}
	if resp["progress"] != float64(60) {
		t.Fatalf("expected progress 60, got %v", resp["progress"])
	}
	if _, present := resp["error_kind"]; present {
		t.Fatalf("error fields should be absent for non-failed workflow")
	}
}

func TestWorkflowStatusIncludesErrorForFailed(t *testing.T) {
	failed := &domain.Workflow{
		ID: "wf-1", DocumentID: "doc-1",
		State: domain.StateFailed, Progress: 40,
		ErrorKind: domain.FailureRedaction, ErrorMessage: "no text",
	}
	handler := newTestHandler(config.Config{}, handlerOverrides{status: statusFake{wf: failed}})

	req := httptest.NewRequest(http.MethodGet, "/workflows/wf-1/status", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "failed" || resp["error_kind"] != "redaction_failed" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestAskQuestionReturnsAnswer(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})
	payload, _ := json.Marshal(map[string]string{"question": "what is the term?"})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/question", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var entry domain.QAEntry
	if err := json.NewDecoder(res.Body).Decode(&entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if entry.Answer != "42" || entry.Status != domain.QAAnswered {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestAskQuestionMapsNotReadyTo409(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{
		qa: qaFake{err: domain.WrapError(domain.ErrNotReady, "ask", errors.New("analysis pending"))},
	})
	payload, _ := json.Marshal(map[string]string{"question": "q"})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/question", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestExportSetsAttachmentHeaders(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})
	payload, _ := json.Marshal(map[string]any{"format": "json"})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/export", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", res.Header().Get("Content-Type"))
	}
	if res.Header().Get("Content-Disposition") == "" {
		t.Fatalf("expected Content-Disposition header")
	}
}

func TestGetDocumentReturns404ForMissing(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{
		dir: directoryFake{getErr: domain.WrapError(domain.ErrNotFound, "get", errors.New("id=missing"))},
	})

	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListDocumentsReportsPagination(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/documents?offset=0&limit=1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["total"] != float64(3) || resp["has_more"] != true {
		t.Fatalf("unexpected pagination: %v", resp)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := newTestHandler(config.Config{}, handlerOverrides{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) != "fixed-id" {
		t.Fatalf("expected request id echo, got %q", res.Header().Get(requestIDHeader))
	}
}

func TestBackpressureReleasesSlotAfterCompletion(t *testing.T) {
	handler := newTestHandler(config.Config{APIMaxConcurrent: 1}, handlerOverrides{})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i, res.Code)
		}
	}
}
