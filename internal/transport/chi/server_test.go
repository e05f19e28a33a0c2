package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/askdoc/askdoc/internal/chunker"
	"github.com/askdoc/askdoc/internal/domain"
	answeruc "github.com/askdoc/askdoc/internal/usecase/answer"
	healthuc "github.com/askdoc/askdoc/internal/usecase/health"
	ingestuc "github.com/askdoc/askdoc/internal/usecase/ingest"
)

// --- Mocks ---

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type mockIndexer struct {
	err     error
	matches []domain.Match
}

func (m *mockIndexer) Add(_ context.Context, _ []domain.IndexRecord) error {
	return m.err
}

func (m *mockIndexer) Search(_ context.Context, _ []float32, _ int, _ string) ([]domain.Match, error) {
	return m.matches, nil
}

type mockCompleter struct {
	text string
	err  error
}

func (m *mockCompleter) Complete(_ context.Context, _ string) (domain.CompletionResult, error) {
	if m.err != nil {
		return domain.CompletionResult{}, m.err
	}
	return domain.CompletionResult{Text: m.text}, nil
}

type mockRegistry struct {
	docs    map[string]domain.DocumentInfo
	pingErr error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{docs: make(map[string]domain.DocumentInfo)}
}

func (m *mockRegistry) Record(_ context.Context, info domain.DocumentInfo) error {
	m.docs[info.ID] = info
	return nil
}

func (m *mockRegistry) Get(_ context.Context, id string) (domain.DocumentInfo, error) {
	info, ok := m.docs[id]
	if !ok {
		return domain.DocumentInfo{}, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	return info, nil
}

func (m *mockRegistry) List(_ context.Context) ([]domain.DocumentInfo, error) {
	out := make([]domain.DocumentInfo, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRegistry) Ping(_ context.Context) error { return m.pingErr }

type testEnv struct {
	embedder  *mockEmbedder
	indexer   *mockIndexer
	completer *mockCompleter
	registry  *mockRegistry
	router    chirouter.Router
}

func passthrough(next http.Handler) http.Handler { return next }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		embedder:  &mockEmbedder{},
		indexer:   &mockIndexer{},
		completer: &mockCompleter{text: "an answer"},
		registry:  newMockRegistry(),
	}

	splitter, err := chunker.New(2000, 200, nil)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}

	ingestSvc := ingestuc.New(splitter, env.embedder, env.indexer, env.registry, nil)
	answerSvc := answeruc.New(env.embedder, env.indexer, env.completer, nil)
	healthSvc := healthuc.New(env.registry, nil)

	server := NewServer(ingestSvc, answerSvc, env.registry, healthSvc, nil)

	env.router = chirouter.NewRouter()
	server.Routes(env.router, passthrough, passthrough)
	return env
}

func doJSON(t *testing.T, router chirouter.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

// --- Upload tests ---

func TestUploadDocument_JSON(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/documents",
		map[string]string{"text": "some document text", "filename": "notes.txt"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DocumentID == "" {
		t.Error("documentId empty")
	}
	if !strings.HasPrefix(resp.DocumentID, "notes-") {
		t.Errorf("documentId = %q, want sanitized stem prefix", resp.DocumentID)
	}
	if resp.Filename != "notes.txt" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.ChunkCount != 1 {
		t.Errorf("chunkCount = %d, want 1", resp.ChunkCount)
	}
}

func TestUploadDocument_Multipart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("report body text")); err != nil {
		t.Fatalf("write: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Filename != "report.txt" {
		t.Errorf("filename = %q", resp.Filename)
	}
}

func TestUploadDocument_EmptyText(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/documents",
		map[string]string{"text": "   ", "filename": "empty.txt"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, codeValidationFailed)
	}
}

func TestUploadDocument_MultipartMissingFile(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadDocument_QuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.err = fmt.Errorf("provider API error 429: %w", domain.ErrQuotaExceeded)

	rec := doJSON(t, env.router, http.MethodPost, "/documents",
		map[string]string{"text": "text", "filename": "a.txt"})

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeQuotaExceeded {
		t.Errorf("code = %q, want %q", resp.Code, codeQuotaExceeded)
	}
}

func TestUploadDocument_PersistenceError(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.err = fmt.Errorf("replace artifact: %w", domain.ErrPersistence)

	rec := doJSON(t, env.router, http.MethodPost, "/documents",
		map[string]string{"text": "text", "filename": "a.txt"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codePersistence {
		t.Errorf("code = %q, want %q", resp.Code, codePersistence)
	}
}

// --- Chat tests ---

func TestChat_Success(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.matches = []domain.Match{
		{Record: domain.IndexRecord{PageContent: "relevant chunk"}, Score: 0.9},
	}

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": "what is in the document?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "an answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Question != "what is in the document?" {
		t.Errorf("question = %q, want echoed back", resp.Question)
	}
}

func TestChat_NoMatchesFallback(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.matches = nil
	env.completer.err = errors.New("must not be called")

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": "anything?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != answeruc.Fallback {
		t.Errorf("answer = %q, want fallback", resp.Answer)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": "   "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChat_MultiByteQuestionWithinBound(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.matches = []domain.Match{
		{Record: domain.IndexRecord{PageContent: "chunk"}, Score: 0.9},
	}

	// 600 characters but 1800 bytes; the bound counts characters.
	question := strings.Repeat("問", 600)
	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": question})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestChat_MultiByteQuestionTooLong(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": strings.Repeat("問", MaxQuestionLen+1)})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, codeValidationFailed)
	}
}

func TestChat_QuestionTooLong(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": strings.Repeat("q", MaxQuestionLen+1)})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, codeValidationFailed)
	}
}

func TestChat_CompletionError(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.matches = []domain.Match{
		{Record: domain.IndexRecord{PageContent: "chunk"}, Score: 0.9},
	}
	env.completer.err = fmt.Errorf("provider API error 500: %w", domain.ErrCompletionProviderError)

	rec := doJSON(t, env.router, http.MethodPost, "/chat",
		map[string]string{"question": "question"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeCompletionProvider {
		t.Errorf("code = %q, want %q", resp.Code, codeCompletionProvider)
	}
}

// --- Listing tests ---

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.registry.docs["doc-1"] = domain.DocumentInfo{
		ID: "doc-1", Filename: "a.txt", ChunkCount: 2, CreatedAt: time.Now().UTC(),
	}

	rec := doJSON(t, env.router, http.MethodGet, "/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp documentListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].DocumentID != "doc-1" {
		t.Errorf("documents = %+v", resp.Documents)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/documents/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeDocumentNotFound {
		t.Errorf("code = %q, want %q", resp.Code, codeDocumentNotFound)
	}
}

// --- Health tests ---

func TestHealth_OK(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.registry.pingErr = errors.New("database locked")

	rec := doJSON(t, env.router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// --- Rate limiting ---

func TestRateLimit(t *testing.T) {
	handler := RateLimit(rate.Limit(0.001), 1)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeRateLimited {
		t.Errorf("code = %q, want %q", resp.Code, codeRateLimited)
	}
}

// --- Helpers ---

func TestNewDocumentID(t *testing.T) {
	tests := []struct {
		filename   string
		wantPrefix string
	}{
		{"report.txt", "report-"},
		{"My Report (final).pdf", "My_Report__final-"},
		{"....", ""},
		{"", ""},
	}
	for _, tt := range tests {
		id := newDocumentID(tt.filename)
		if id == "" {
			t.Errorf("newDocumentID(%q) empty", tt.filename)
			continue
		}
		if tt.wantPrefix != "" && !strings.HasPrefix(id, tt.wantPrefix) {
			t.Errorf("newDocumentID(%q) = %q, want prefix %q", tt.filename, id, tt.wantPrefix)
		}
	}
}
