package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clauseguard/docengine/internal/config"
	"github.com/clauseguard/docengine/internal/core/domain"
	"github.com/clauseguard/docengine/internal/core/ports"
	"github.com/clauseguard/docengine/internal/observability/metrics"
)

const serviceName = "api"

// backpressureWait bounds how long a request may queue for an execution slot
// before it is shed.
const backpressureWait = 2 * time.Second

type Router struct {
	cfg       config.Config
	ingest    ports.DocumentIngestor
	directory ports.DocumentDirectory
	status    ports.WorkflowStatusReader
	qa        ports.QAService
	exporter  ports.AnalysisExporter
	analytics ports.AnalyticsService
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	directory ports.DocumentDirectory,
	status ports.WorkflowStatusReader,
	qa ports.QAService,
	exporter ports.AnalysisExporter,
	analytics ports.AnalyticsService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		ingest:    ingest,
		directory: directory,
		status:    status,
		qa:        qa,
		exporter:  exporter,
		analytics: analytics,
		metrics:   httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/documents/upload", rt.uploadDocument)
	mux.HandleFunc("/documents", rt.listDocuments)
	mux.HandleFunc("/documents/", rt.documentSubtree)
	mux.HandleFunc("/workflows/", rt.workflowStatus)
	mux.HandleFunc("/analytics/dashboard", rt.analyticsDashboard)
	mux.HandleFunc("/analytics/detailed", rt.analyticsDetailed)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxConcurrent, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, wf, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordUpload(serviceName, "rejected", 0)
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, "accepted", doc.SizeBytes)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"document_id":  doc.ID,
		"workflow_id":  wf.ID,
		"filename":     doc.Filename,
		"file_size":    doc.SizeBytes,
		"content_type": doc.ContentType,
		"message":      "document accepted for processing",
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	docs, total, err := rt.directory.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
		"has_more":  offset+len(docs) < total,
	})
}

// documentSubtree dispatches /documents/{id} and its nested resources.
func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}
	documentID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rt.getDocument(w, r, documentID)
		case http.MethodDelete:
			rt.deleteDocument(w, r, documentID)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
		return
	}

	switch {
	case parts[1] == "question" && r.Method == http.MethodPost:
		rt.askQuestion(w, r, documentID)
	case parts[1] == "questions" && r.Method == http.MethodGet:
		rt.questionHistory(w, r, documentID)
	case parts[1] == "export" && r.Method == http.MethodPost:
		rt.exportAnalysis(w, r, documentID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	doc, wf, analysis, err := rt.directory.Get(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := map[string]any{
		"document": doc,
		"workflow": wf,
	}
	if analysis != nil {
		payload["analysis"] = analysis
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	if err := rt.directory.Delete(r.Context(), documentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"document_id": documentID,
		"message":     "document deleted",
	})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request, documentID string) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	entry, err := rt.qa.Ask(r.Context(), documentID, req.Question)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordQuestion(serviceName, "error", time.Since(start))
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordQuestion(serviceName, string(entry.Status), time.Since(start))
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) questionHistory(w http.ResponseWriter, r *http.Request, documentID string) {
	entries, err := rt.qa.History(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"questions":   entries,
		"total":       len(entries),
	})
}

func (rt *Router) exportAnalysis(w http.ResponseWriter, r *http.Request, documentID string) {
	var req struct {
		Format   string   `json:"format"`
		Sections []string `json:"sections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	payload, contentType, err := rt.exporter.Export(r.Context(), documentID, req.Format, req.Sections)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, req.Format)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "analysis_"+documentID+"."+req.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (rt *Router) workflowStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/workflows/")
	workflowID, tail, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if workflowID == "" || tail != "status" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
		return
	}

	wf, err := rt.status.Status(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(wf))
}

// statusResponse maps internal workflow state to the public polling contract.
func statusResponse(wf *domain.Workflow) map[string]any {
	payload := map[string]any{
		"workflow_id":  wf.ID,
		"document_id":  wf.DocumentID,
		"status":       wf.State.Public(),
		"progress":     wf.Progress,
		"current_step": wf.CurrentStep,
		"updated_at":   wf.UpdatedAt,
	}
	if wf.State == domain.StateFailed {
		payload["error_kind"] = wf.ErrorKind
		payload["error_message"] = wf.ErrorMessage
	}
	return payload
}

func (rt *Router) analyticsDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := rt.analytics.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) analyticsDetailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := rt.analytics.Detailed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
