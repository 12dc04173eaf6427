package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/chatagent"
	"github.com/w-h-a/sales-insight/extractor"
	"github.com/w-h-a/sales-insight/saleshelper"
	"github.com/w-h-a/sales-insight/vectorstore"
)

const maxUploadBytes = 32 << 20

// Handler wires the transcript pipeline, vector store capability, and
// agents to the HTTP surface.
type Handler struct {
	analyzer  *analyzer.Analyzer
	extractor extractor.Extractor
	store     vectorstore.Capability
	sales     *saleshelper.Agent
	chat      *chatagent.Agent
}

func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.Use(Logging)

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/analyze/text", h.AnalyzeText).Methods(http.MethodPost)
	api.HandleFunc("/analyze/file", h.AnalyzeFile).Methods(http.MethodPost)
	api.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	api.HandleFunc("/transcripts/{id}", h.GetTranscript).Methods(http.MethodGet)
	api.HandleFunc("/sales-helper", h.SalesHelper).Methods(http.MethodPost)
	api.HandleFunc("/chat", h.Chat).Methods(http.MethodPost)
	api.HandleFunc("/chat/history", h.ChatHistory).Methods(http.MethodGet)
	api.HandleFunc("/chat/clear", h.ClearChat).Methods(http.MethodPost)

	return router
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	vector := "disabled"
	if h.store.Enabled() {
		vector = "enabled"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "healthy",
		Services: map[string]string{
			"api":          "running",
			"vector_store": vector,
		},
	})
}

func (h *Handler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req textAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, analysisResponse{Success: false, Error: "invalid request body"})
		return
	}

	id := req.TranscriptId
	if len(strings.TrimSpace(id)) == 0 {
		id = uuid.New().String()
	}

	// An omitted flag means store, matching the file endpoint.
	store := req.StoreInDb == nil || *req.StoreInDb

	h.analyze(r.Context(), w, id, req.Transcript, "text", store)
}

func (h *Handler) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, analysisResponse{Success: false, Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, analysisResponse{Success: false, Error: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, analysisResponse{Success: false, Error: "failed to read file"})
		return
	}

	id := r.FormValue("transcript_id")
	if len(strings.TrimSpace(id)) == 0 {
		id = uuid.New().String()
	}

	store := r.FormValue("store_in_db") != "false"

	text, err := h.extractor.Extract(header.Filename, data)
	if err != nil {
		// Unextractable files are a content error, not a server error.
		writeJSON(w, http.StatusBadRequest, analysisResponse{
			Success:      false,
			TranscriptId: id,
			Error:        fmt.Sprintf("extraction failed: %v", err),
		})
		return
	}

	h.analyze(r.Context(), w, id, text, extractor.SourceType(header.Filename), store)
}

func (h *Handler) analyze(ctx context.Context, w http.ResponseWriter, id string, text string, sourceType string, store bool) {
	analysis, err := h.analyzer.Analyze(ctx, text)
	if err != nil {
		var malformed *analyzer.MalformedOutputError

		switch {
		case errors.Is(err, analyzer.ErrEmptyTranscript):
			writeJSON(w, http.StatusBadRequest, analysisResponse{
				Success:      false,
				TranscriptId: id,
				Error:        "transcript text is empty",
			})
		case errors.As(err, &malformed):
			writeJSON(w, http.StatusUnprocessableEntity, analysisResponse{
				Success:      false,
				TranscriptId: id,
				RawOutput:    malformed.Raw,
				Error:        "model output could not be parsed",
			})
		default:
			writeJSON(w, http.StatusBadGateway, analysisResponse{
				Success:      false,
				TranscriptId: id,
				Error:        err.Error(),
			})
		}
		return
	}

	if store {
		if s := h.store.Store(); s != nil {
			if _, err := s.Upsert(ctx, id, text, analysis, sourceType); err != nil {
				// The analysis itself succeeded; report it with a warning
				// instead of failing the request.
				slog.WarnContext(ctx, "failed to store transcript", "id", id, "error", err)
				if analysis.Extra == nil {
					analysis.Extra = map[string]any{}
				}
				analysis.Extra["storage_warning"] = "analysis completed but not stored in database"
			}
		} else {
			if analysis.Extra == nil {
				analysis.Extra = map[string]any{}
			}
			analysis.Extra["storage_warning"] = "vector store is disabled"
		}
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		Success:      true,
		TranscriptId: id,
		Transcript:   text,
		Analysis:     &analysis,
		SourceType:   sourceType,
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, searchResponse{Success: false, Results: []searchResult{}, Error: "invalid request body"})
		return
	}

	if req.TopK == 0 {
		req.TopK = 5
	}

	store := h.store.Store()
	if store == nil {
		// Disabled backend is an empty result, not a failure.
		writeJSON(w, http.StatusOK, searchResponse{Success: true, Results: []searchResult{}, SearchEnabled: false})
		return
	}

	hits, err := store.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, searchResponse{Success: false, Results: []searchResult{}, SearchEnabled: true, Error: err.Error()})
		return
	}

	results := toSearchResults(hits)

	writeJSON(w, http.StatusOK, searchResponse{
		Success:       true,
		Results:       results,
		Count:         len(results),
		SearchEnabled: true,
	})
}

func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	store := h.store.Store()
	if store == nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Success: false, Error: "vector store is disabled"})
		return
	}

	record, err := store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, statusResponse{Success: false, Error: "transcript not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, statusResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    record,
	})
}

func (h *Handler) SalesHelper(w http.ResponseWriter, r *http.Request) {
	var req salesHelperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, salesHelperResponse{Success: false, Error: "invalid request body"})
		return
	}

	if len(strings.TrimSpace(req.SalespersonInput)) == 0 {
		writeJSON(w, http.StatusBadRequest, salesHelperResponse{Success: false, Error: "salesperson_input is required"})
		return
	}

	result, err := h.sales.Process(r.Context(), req.SalespersonInput)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, salesHelperResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, salesHelperResponse{
		Success:         true,
		Requirements:    result.Requirements,
		Matches:         toSearchResults(result.Matches),
		Recommendations: result.Recommendations,
		SearchDisabled:  result.SearchDisabled,
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Success: false, Error: "invalid request body"})
		return
	}

	if len(strings.TrimSpace(req.Message)) == 0 {
		writeJSON(w, http.StatusBadRequest, chatResponse{Success: false, Error: "message is required"})
		return
	}

	// The agent always needs a concrete key; an omitted session id means a
	// fresh anonymous session.
	sessionId := req.SessionId
	if len(strings.TrimSpace(sessionId)) == 0 {
		sessionId = uuid.New().String()
	}

	reply, err := h.chat.Chat(r.Context(), sessionId, req.Message)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, chatResponse{
			Success:   false,
			SessionId: sessionId,
			Answer:    "I apologize, but I encountered an error processing your message.",
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:     true,
		Answer:      reply.Answer,
		SessionId:   sessionId,
		UsedContext: reply.UsedContext,
	})
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionId := r.URL.Query().Get("session_id")
	if len(strings.TrimSpace(sessionId)) == 0 {
		writeJSON(w, http.StatusBadRequest, chatHistoryResponse{Success: false, Error: "session_id is required"})
		return
	}

	turns, err := h.chat.History(r.Context(), sessionId)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, chatHistoryResponse{Success: false, SessionId: sessionId, Error: err.Error()})
		return
	}

	if turns == nil {
		turns = []chatagent.Turn{}
	}

	writeJSON(w, http.StatusOK, chatHistoryResponse{
		Success:   true,
		SessionId: sessionId,
		History:   turns,
		Count:     len(turns),
	})
}

func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	var req clearChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Success: false, Error: "invalid request body"})
		return
	}

	if len(strings.TrimSpace(req.SessionId)) == 0 {
		writeJSON(w, http.StatusBadRequest, statusResponse{Success: false, Error: "session_id is required"})
		return
	}

	if err := h.chat.Clear(r.Context(), req.SessionId); err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "chat memory cleared"})
}

func toSearchResults(hits []vectorstore.SearchHit) []searchResult {
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			TranscriptId:   hit.Record.Id,
			TranscriptText: hit.Record.Text,
			Analysis:       hit.Record.Analysis,
			SourceType:     hit.Record.SourceType,
			Timestamp:      hit.Record.CreatedAt,
			Distance:       hit.Distance,
		})
	}
	return results
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func NewHandler(
	analyzer *analyzer.Analyzer,
	extractor extractor.Extractor,
	store vectorstore.Capability,
	sales *saleshelper.Agent,
	chat *chatagent.Agent,
) *Handler {
	if analyzer == nil || extractor == nil || sales == nil || chat == nil {
		panic("analyzer, extractor, sales agent, and chat agent are required")
	}

	return &Handler{
		analyzer:  analyzer,
		extractor: extractor,
		store:     store,
		sales:     sales,
		chat:      chat,
	}
}
