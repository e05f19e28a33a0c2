// Package chi exposes the ingestion and chat API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/domain"
	answeruc "github.com/askdoc/askdoc/internal/usecase/answer"
	healthuc "github.com/askdoc/askdoc/internal/usecase/health"
	ingestuc "github.com/askdoc/askdoc/internal/usecase/ingest"
)

// Question length bounds enforced at the transport boundary.
const (
	MinQuestionLen = 1
	MaxQuestionLen = 1000
)

// DefaultMaxUploadBytes limits upload payloads to 10 MB.
const DefaultMaxUploadBytes = 10 << 20

// Registry is the read side of the document registry used by the API.
type Registry interface {
	Get(ctx context.Context, id string) (domain.DocumentInfo, error)
	List(ctx context.Context) ([]domain.DocumentInfo, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the document Q&A API.
type Server struct {
	ingest         *ingestuc.Service
	answer         *answeruc.Service
	registry       Registry
	health         *healthuc.Service
	logger         *zap.Logger
	maxUploadBytes int64
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	answer *answeruc.Service,
	registry Registry,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ingest:         ingest,
		answer:         answer,
		registry:       registry,
		health:         health,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNoContent, http.StatusUnprocessableEntity, codeNoContent),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, codeCompletionProvider),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError, codePersistence),
	}
	return s
}

// WithMaxUploadBytes overrides the upload size limit.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Routes mounts all API routes on r. Rate limiters are applied per route:
// uploads are scarce and expensive, chat is chatty.
func (s *Server) Routes(r chi.Router, uploadLimiter, chatLimiter func(http.Handler) http.Handler) {
	r.With(uploadLimiter).Post("/documents", s.UploadDocument)
	r.Get("/documents", s.ListDocuments)
	r.Get("/documents/{documentID}", s.GetDocument)
	r.With(chatLimiter).Post("/chat", s.Chat)
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type uploadRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

type uploadResponse struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunkCount,omitempty"`
}

// UploadDocument handles POST /documents. Accepts either a multipart form
// with a plain-text "file" field or a JSON body {text, filename}. Binary
// formats are extracted upstream; this endpoint only takes text.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	text, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"uploaded document is empty or contains no extractable text")
		return
	}

	documentID := newDocumentID(filename)

	if _, err := s.ingest.AddDocument(r.Context(), text, documentID, filename); err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := uploadResponse{DocumentID: documentID, Filename: filename}
	if info, err := s.registry.Get(r.Context(), documentID); err == nil {
		resp.ChunkCount = info.ChunkCount
	}

	writeJSON(w, http.StatusCreated, resp)
}

// readUpload extracts (text, filename) from either encoding. On failure it
// writes the error response itself and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
			return "", "", false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "no file uploaded")
			return "", "", false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read upload: "+err.Error())
			return "", "", false
		}
		return string(data), filepath.Base(header.Filename), true
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return "", "", false
	}
	filename := req.Filename
	if filename == "" {
		filename = "untitled.txt"
	}
	return req.Text, filepath.Base(filename), true
}

type chatRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"documentId,omitempty"`
}

type chatResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.Question)
	// Character bounds, not bytes: a CJK question is three bytes per rune.
	if n := utf8.RuneCountInString(question); n < MinQuestionLen || n > MaxQuestionLen {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("question must be between %d and %d characters", MinQuestionLen, MaxQuestionLen))
		return
	}

	answer, err := s.answer.Answer(r.Context(), question, req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Question: question, Answer: answer})
}

type documentResponse struct {
	DocumentID string    `json:"documentId"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunkCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.registry.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := documentListResponse{Documents: make([]documentResponse, len(docs))}
	for i, d := range docs {
		resp.Documents[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDocument handles GET /documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	info, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(info))
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	resp := healthResponse{Status: string(report.Status), Checks: make(map[string]string)}
	for name, result := range report.Checks {
		resp.Checks[name] = string(result)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func documentToResponse(d domain.DocumentInfo) documentResponse {
	return documentResponse{
		DocumentID: d.ID,
		Filename:   d.Filename,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
	}
}

// newDocumentID derives a distinguishable id per upload: a fresh UUID plus
// a sanitized filename stem for human readability in listings and logs.
func newDocumentID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = sanitizeStem(stem)
	if stem == "" {
		return uuid.NewString()
	}
	return stem + "-" + uuid.NewString()
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// handleDomainError maps a domain error to an HTTP response via the
// sentinel table; unmatched errors become opaque 500s.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := err.Error()
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}

	s.logger.Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
