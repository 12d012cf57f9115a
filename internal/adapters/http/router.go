package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/avoronin/docmd/internal/core/ports"
	"github.com/avoronin/docmd/internal/core/usecase"
	"github.com/avoronin/docmd/internal/observability/metrics"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

type Router struct {
	submitUC    ports.DocumentSubmitter
	statusUC    ports.StatusReader
	resultUC    *usecase.ResultUseCase
	tokensUC    *usecase.TokenUsageUseCase
	resetUC     ports.WorkspaceResetter
	chatUC      ports.ChatAnswerer
	recognizeUC *usecase.RecognizeImageUseCase

	maxUploadBytes int64
	serverMetrics  *metrics.HTTPServerMetrics
	service        string
}

func NewRouter(
	submitUC ports.DocumentSubmitter,
	statusUC ports.StatusReader,
	resultUC *usecase.ResultUseCase,
	tokensUC *usecase.TokenUsageUseCase,
	resetUC ports.WorkspaceResetter,
	chatUC ports.ChatAnswerer,
	recognizeUC *usecase.RecognizeImageUseCase,
	maxUploadBytes int64,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 * 1024 * 1024
	}
	return &Router{
		submitUC:       submitUC,
		statusUC:       statusUC,
		resultUC:       resultUC,
		tokensUC:       tokensUC,
		resetUC:        resetUC,
		chatUC:         chatUC,
		recognizeUC:    recognizeUC,
		maxUploadBytes: maxUploadBytes,
		serverMetrics:  serverMetrics,
		service:        "api",
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.submitDocument)
	mux.HandleFunc("/v1/documents/status", rt.documentStatus)
	mux.HandleFunc("/v1/documents/result", rt.documentResult)
	mux.HandleFunc("/v1/documents/download", rt.download)
	mux.HandleFunc("/v1/tokens", rt.tokenUsage)
	mux.HandleFunc("/v1/tokens/export", rt.tokenExport)
	mux.HandleFunc("/v1/images/recognize", rt.recognizeImage)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/workspaces/reset", rt.resetWorkspace)

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		mux.Handle("/metrics", rt.serverMetrics.Handler())
		handler = rt.serverMetrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitDocument accepts one multipart document and schedules its
// conversion. The 202 means "stored and queued", not "converted": callers
// poll the status endpoint to learn when the result is ready.
func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(rt.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if fileHeader.Size > rt.maxUploadBytes {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("file exceeds the %d byte limit", rt.maxUploadBytes),
		})
		return
	}

	userID := formValue(r, "user_id")
	if err := rt.submitUC.Submit(r.Context(), userID, fileHeader.Filename, file); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "accepted"})
}

func (rt *Router) documentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status, err := rt.statusUC.Status(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) documentResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := r.URL.Query()
	result, err := rt.resultUC.Result(r.Context(), query.Get("user_id"), query.Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// download normalizes caller-supplied Markdown and streams it back as an
// attachment.
func (rt *Router) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Content  string `json:"content"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	normalized, err := rt.resultUC.RenderForDownload(req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	name := strings.TrimSpace(req.FileName)
	if name == "" {
		name = "document"
	}
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)) + ".md"

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, normalized)
}

func (rt *Router) tokenUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := r.URL.Query()
	userID := query.Get("user_id")

	if name := query.Get("name"); name != "" {
		record, err := rt.tokensUC.Get(r.Context(), userID, name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	records, err := rt.tokensUC.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// recognizeImage converts one image synchronously, without touching any
// workspace or writing a ledger row.
func (rt *Router) recognizeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(rt.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'image' is required"})
		return
	}
	defer file.Close()

	if fileHeader.Size > rt.maxUploadBytes {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("image exceeds the %d byte limit", rt.maxUploadBytes),
		})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := imageExtensions[ext]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unsupported image extension %q", ext)})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable image"})
		return
	}

	tokens, markdown, err := rt.recognizeUC.Recognize(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens":   tokens,
		"markdown": markdown,
	})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	answer, err := rt.chatUC.Answer(r.Context(), req.Question, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (rt *Router) resetWorkspace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.resetUC.Reset(r.Context(), formValue(r, "user_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "workspace reset"})
}

func formValue(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
