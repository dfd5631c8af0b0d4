package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/clauseguard/docengine/internal/core/domain"
)

// In-memory collaborators shared by the use case tests. They implement the
// outbound ports with just enough behavior to observe what the use cases do.

type memDocuments struct {
	docs  map[string]*domain.Document
	order []string

	createErr error
	setErr    error
	exts      map[string]int
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: map[string]*domain.Document{}}
}

func (m *memDocuments) Create(_ context.Context, doc *domain.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	copyDoc := *doc
	m.docs[doc.ID] = &copyDoc
	m.order = append(m.order, doc.ID)
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (m *memDocuments) List(_ context.Context, offset, limit int) ([]domain.Document, int, error) {
	total := len(m.order)
	if offset >= total {
		return []domain.Document{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domain.Document, 0, end-offset)
	for _, id := range m.order[offset:end] {
		out = append(out, *m.docs[id])
	}
	return out, total, nil
}

func (m *memDocuments) SetRedacted(_ context.Context, id, text string) error {
	if m.setErr != nil {
		return m.setErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "set redacted", fmt.Errorf("id %s", id))
	}
	if doc.RedactionApplied {
		return domain.WrapError(domain.ErrAlreadySet, "set redacted", fmt.Errorf("id %s", id))
	}
	doc.RedactedContent = text
	doc.RedactionApplied = true
	return nil
}

func (m *memDocuments) Delete(_ context.Context, id string) error {
	delete(m.docs, id)
	for i, got := range m.order {
		if got == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memDocuments) ExtensionCounts(context.Context) (map[string]int, error) {
	if m.exts != nil {
		return m.exts, nil
	}
	counts := map[string]int{}
	for _, doc := range m.docs {
		counts[strings.TrimPrefix(doc.Extension(), ".")]++
	}
	return counts, nil
}

type memWorkflows struct {
	wfs map[string]*domain.Workflow

	progressLog []int
	avgSeconds  float64
}

func newMemWorkflows() *memWorkflows {
	return &memWorkflows{wfs: map[string]*domain.Workflow{}}
}

func (m *memWorkflows) Create(_ context.Context, wf *domain.Workflow) error {
	copyWf := *wf
	m.wfs[wf.ID] = &copyWf
	m.progressLog = append(m.progressLog, wf.Progress)
	return nil
}

func (m *memWorkflows) GetByID(_ context.Context, id string) (*domain.Workflow, error) {
	wf, ok := m.wfs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get workflow", fmt.Errorf("id %s", id))
	}
	copyWf := *wf
	return &copyWf, nil
}

func (m *memWorkflows) GetByDocumentID(_ context.Context, documentID string) (*domain.Workflow, error) {
	for _, wf := range m.wfs {
		if wf.DocumentID == documentID {
			copyWf := *wf
			return &copyWf, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get workflow", fmt.Errorf("document %s", documentID))
}

func (m *memWorkflows) Transition(_ context.Context, id string, from, to domain.WorkflowState, progress int, step string) error {
	wf, ok := m.wfs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "transition", fmt.Errorf("id %s", id))
	}
	if wf.State != from {
		return domain.WrapError(domain.ErrAlreadyStarted, "transition",
			fmt.Errorf("workflow %s is not in state %s", id, from))
	}
	wf.State = to
	if progress > wf.Progress {
		wf.Progress = progress
	}
	wf.CurrentStep = step
	m.progressLog = append(m.progressLog, wf.Progress)
	return nil
}

func (m *memWorkflows) UpdateProgress(_ context.Context, id string, progress int, step string) error {
	wf, ok := m.wfs[id]
	if !ok || wf.State.Terminal() {
		return nil
	}
	if progress > wf.Progress {
		wf.Progress = progress
	}
	wf.CurrentStep = step
	m.progressLog = append(m.progressLog, wf.Progress)
	return nil
}

func (m *memWorkflows) MarkFailed(_ context.Context, id string, kind domain.FailureKind, message string, attempts int) error {
	wf, ok := m.wfs[id]
	if !ok || wf.State.Terminal() {
		return nil
	}
	wf.State = domain.StateFailed
	wf.ErrorKind = kind
	wf.ErrorMessage = message
	wf.Attempts = attempts
	return nil
}

func (m *memWorkflows) RecordAttempts(_ context.Context, id string, attempts int) error {
	if wf, ok := m.wfs[id]; ok {
		wf.Attempts = attempts
	}
	return nil
}

func (m *memWorkflows) CountByState(context.Context) (map[domain.WorkflowState]int, error) {
	counts := map[domain.WorkflowState]int{}
	for _, wf := range m.wfs {
		counts[wf.State]++
	}
	return counts, nil
}

func (m *memWorkflows) AverageCompletionSeconds(context.Context) (float64, error) {
	return m.avgSeconds, nil
}

type memAnalyses struct {
	byDocument map[string]*domain.AnalysisResult
}

func newMemAnalyses() *memAnalyses {
	return &memAnalyses{byDocument: map[string]*domain.AnalysisResult{}}
}

func (m *memAnalyses) Create(_ context.Context, result *domain.AnalysisResult) error {
	copyResult := *result
	m.byDocument[result.DocumentID] = &copyResult
	return nil
}

func (m *memAnalyses) GetByDocumentID(_ context.Context, documentID string) (*domain.AnalysisResult, error) {
	result, ok := m.byDocument[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("document %s", documentID))
	}
	copyResult := *result
	return &copyResult, nil
}

func (m *memAnalyses) RiskLevelCounts(context.Context) (map[domain.RiskLevel]int, error) {
	counts := map[domain.RiskLevel]int{}
	for _, result := range m.byDocument {
		counts[result.OverallRisk()]++
	}
	return counts, nil
}

type memQAEntries struct {
	entries map[string]*domain.QAEntry
	order   []string
}

func newMemQAEntries() *memQAEntries {
	return &memQAEntries{entries: map[string]*domain.QAEntry{}}
}

func (m *memQAEntries) Create(_ context.Context, entry *domain.QAEntry) error {
	copyEntry := *entry
	m.entries[entry.ID] = &copyEntry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *memQAEntries) Complete(_ context.Context, id, answer string) error {
	entry, ok := m.entries[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "complete qa entry", fmt.Errorf("id %s", id))
	}
	entry.Answer = answer
	entry.Status = domain.QAAnswered
	return nil
}

func (m *memQAEntries) Fail(_ context.Context, id, message string) error {
	entry, ok := m.entries[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fail qa entry", fmt.Errorf("id %s", id))
	}
	entry.Status = domain.QAError
	entry.ErrorMessage = message
	return nil
}

func (m *memQAEntries) GetByID(_ context.Context, id string) (*domain.QAEntry, error) {
	entry, ok := m.entries[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get qa entry", fmt.Errorf("id %s", id))
	}
	copyEntry := *entry
	return &copyEntry, nil
}

func (m *memQAEntries) ListByDocument(_ context.Context, documentID string) ([]domain.QAEntry, error) {
	out := []domain.QAEntry{}
	for _, id := range m.order {
		if m.entries[id].DocumentID == documentID {
			out = append(out, *m.entries[id])
		}
	}
	return out, nil
}

type memStorage struct {
	files   map[string][]byte
	deleted []string
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (m *memStorage) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	m.files[key] = raw
	return int64(len(raw)), nil
}

func (m *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := m.files[key]
	if !ok {
		return nil, errors.New("no such object: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.files, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishWorkflowStarted(_ context.Context, workflowID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, workflowID)
	return nil
}

func (f *queueFake) SubscribeWorkflowStarted(context.Context, func(context.Context, string) error) error {
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type redactorFake struct {
	outcome  domain.RedactionOutcome
	err      error
	failures int

	calls int
}

func (f *redactorFake) Redact(_ context.Context, text string) (domain.RedactionOutcome, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return domain.RedactionOutcome{}, domain.WrapError(domain.ErrTemporary, "redact", errors.New("transient"))
	}
	if f.err != nil {
		return domain.RedactionOutcome{}, f.err
	}
	if f.outcome.CleanText == "" {
		return domain.RedactionOutcome{CleanText: text}, nil
	}
	return f.outcome, nil
}

type analyzerFake struct {
	result    *domain.AnalysisResult
	err       error
	answer    string
	answerErr error

	analyzedTexts []string
	answeredTexts []string
	calls         int
}

func (f *analyzerFake) Analyze(_ context.Context, cleanText string) (*domain.AnalysisResult, error) {
	f.calls++
	f.analyzedTexts = append(f.analyzedTexts, cleanText)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		copyResult := *f.result
		return &copyResult, nil
	}
	return &domain.AnalysisResult{Summary: "summary"}, nil
}

func (f *analyzerFake) AnswerQuestion(_ context.Context, cleanText string, _ *domain.AnalysisResult, _ []domain.QAEntry, _ string) (string, error) {
	f.answeredTexts = append(f.answeredTexts, cleanText)
	if f.answerErr != nil {
		return "", f.answerErr
	}
	if f.answer == "" {
		return "an answer", nil
	}
	return f.answer, nil
}
