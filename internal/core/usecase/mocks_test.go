package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// fakeWorkspace keeps the three storage areas in memory, mirroring the
// directory-derived status rules of the filesystem implementation.
type fakeWorkspace struct {
	mu      sync.Mutex
	uploads map[string]map[string][]byte
	temp    map[string]map[string][]byte
	results map[string]map[string]string

	saveErr        error
	writeResultErr error
	purgeTempErr   error
	purgeTempCalls int
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		uploads: make(map[string]map[string][]byte),
		temp:    make(map[string]map[string][]byte),
		results: make(map[string]map[string]string),
	}
}

func (w *fakeWorkspace) EnsureAreas(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLocked(userID)
	return nil
}

func (w *fakeWorkspace) ensureLocked(userID string) {
	if w.uploads[userID] == nil {
		w.uploads[userID] = make(map[string][]byte)
		w.temp[userID] = make(map[string][]byte)
		w.results[userID] = make(map[string]string)
	}
}

func (w *fakeWorkspace) SaveUpload(userID, fileName string, body io.Reader) (string, error) {
	if w.saveErr != nil {
		return "", w.saveErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLocked(userID)
	base := trimExt(fileName)
	for existing := range w.uploads[userID] {
		if trimExt(existing) == base {
			delete(w.uploads[userID], existing)
		}
	}
	delete(w.results[userID], base)
	w.uploads[userID][fileName] = raw
	return w.UploadPath(userID, fileName), nil
}

func (w *fakeWorkspace) UploadPath(userID, fileName string) string {
	return path.Join("mem", userID, "upload", fileName)
}

func (w *fakeWorkspace) TempPath(userID, fileName string) string {
	return path.Join("mem", userID, "temp", fileName)
}

func (w *fakeWorkspace) Status(userID string) (domain.StatusCode, map[string]bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	uploads, ok := w.uploads[userID]
	if !ok || len(uploads) == 0 {
		return domain.StatusNotStarted, nil, nil
	}
	documents := make(map[string]bool, len(uploads))
	allDone := true
	for name := range uploads {
		base := trimExt(name)
		_, done := w.results[userID][base]
		documents[base] = done
		if !done {
			allDone = false
		}
	}
	if allDone {
		return domain.StatusComplete, documents, nil
	}
	return domain.StatusInProgress, documents, nil
}

func (w *fakeWorkspace) WriteResult(userID, baseName, markdown string) error {
	if w.writeResultErr != nil {
		return w.writeResultErr
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLocked(userID)
	w.results[userID][baseName] = markdown
	return nil
}

func (w *fakeWorkspace) ReadResult(userID, baseName string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	markdown, ok := w.results[userID][baseName]
	if !ok {
		return "", domain.WrapError(domain.ErrNotFound, "read result", fmt.Errorf("no artifact for %s", baseName))
	}
	return markdown, nil
}

func (w *fakeWorkspace) PurgeTemp(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purgeTempCalls++
	if w.purgeTempErr != nil {
		return w.purgeTempErr
	}
	w.temp[userID] = make(map[string][]byte)
	return nil
}

func (w *fakeWorkspace) PurgeUser(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.uploads, userID)
	delete(w.temp, userID)
	delete(w.results, userID)
	return nil
}

func trimExt(name string) string {
	ext := path.Ext(name)
	return name[:len(name)-len(ext)]
}

// fakeSource serves pre-baked page images.
type fakeSource struct {
	pages     [][]byte
	renderErr map[int]error
	closed    bool
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (s *fakeSource) RenderPage(_ context.Context, page int, _ string) ([]byte, error) {
	if err := s.renderErr[page]; err != nil {
		return nil, err
	}
	return s.pages[page-1], nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeRasterizer struct {
	source  *fakeSource
	openErr error
}

func (r *fakeRasterizer) Open(context.Context, string) (ports.PageSource, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	return r.source, nil
}

// fakeVision maps image bytes to canned responses.
type fakeVision struct {
	responses map[string]visionResponse
	chatReply string
	chatErr   error
	calls     int
}

type visionResponse struct {
	tokens   int
	markdown string
	err      error
}

func (v *fakeVision) Recognize(_ context.Context, image []byte) (int, string, error) {
	v.calls++
	resp, ok := v.responses[string(image)]
	if !ok {
		return 0, "", fmt.Errorf("unexpected image %q", image)
	}
	return resp.tokens, resp.markdown, resp.err
}

func (v *fakeVision) Chat(_ context.Context, _, _ string) (string, error) {
	if v.chatErr != nil {
		return "", v.chatErr
	}
	return v.chatReply, nil
}

type ledgerKey struct{ userID, fileName string }

type fakeLedger struct {
	mu        sync.Mutex
	records   map[ledgerKey]int
	recordErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[ledgerKey]int)}
}

func (l *fakeLedger) Record(_ context.Context, userID, fileName string, totalTokens int) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[ledgerKey{userID, fileName}] = totalTokens
	return nil
}

func (l *fakeLedger) Get(_ context.Context, userID, fileName string) (domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tokens, ok := l.records[ledgerKey{userID, fileName}]
	if !ok {
		return domain.TokenRecord{}, domain.WrapError(domain.ErrNotFound, "get token record", fmt.Errorf("no row"))
	}
	return domain.TokenRecord{UserID: userID, FileName: fileName, TotalTokens: tokens}, nil
}

func (l *fakeLedger) List(_ context.Context, userID string) ([]domain.TokenRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.TokenRecord
	for key, tokens := range l.records {
		if key.userID == userID {
			out = append(out, domain.TokenRecord{UserID: userID, FileName: key.fileName, TotalTokens: tokens})
		}
	}
	return out, nil
}

func (l *fakeLedger) DeleteAll(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.records {
		if key.userID == userID {
			delete(l.records, key)
		}
	}
	return nil
}

type fakeStateStore struct {
	mu        sync.Mutex
	states    map[ledgerKey]domain.DocumentState
	messages  map[ledgerKey]string
	upsertErr error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{
		states:   make(map[ledgerKey]domain.DocumentState),
		messages: make(map[ledgerKey]string),
	}
}

func (s *fakeStateStore) Upsert(_ context.Context, userID, baseName string, state domain.DocumentState, errMessage string) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[ledgerKey{userID, baseName}] = state
	s.messages[ledgerKey{userID, baseName}] = errMessage
	return nil
}

func (s *fakeStateStore) ListStates(_ context.Context, userID string) (map[string]domain.DocumentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.DocumentState)
	for key, state := range s.states {
		if key.userID == userID {
			out[key.fileName] = state
		}
	}
	return out, nil
}

func (s *fakeStateStore) DeleteAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.states {
		if key.userID == userID {
			delete(s.states, key)
		}
	}
	return nil
}

func (s *fakeStateStore) stateOf(userID, baseName string) domain.DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[ledgerKey{userID, baseName}]
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []domain.OCRJob
	publishErr error
}

func (q *fakeQueue) PublishOCRJob(_ context.Context, job domain.OCRJob) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, job)
	return nil
}

func (q *fakeQueue) SubscribeOCRJobs(context.Context, func(context.Context, domain.OCRJob) error) error {
	return nil
}

// passthroughNormalizer applies the same fence stripping rules as the real
// one, without pulling the infrastructure package into these tests.
type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(text string) string { return passthroughNormalizer{}.StripFences(text) }

func (passthroughNormalizer) StripFences(text string) string {
	b := []byte(text)
	b = bytes.TrimPrefix(b, []byte("```markdown\n"))
	b = bytes.TrimSuffix(b, []byte("```"))
	b = bytes.TrimSuffix(b, []byte("\n"))
	return string(b)
}
