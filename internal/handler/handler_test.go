package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/chatagent"
	chatmemory "github.com/w-h-a/sales-insight/chatagent/memory"
	"github.com/w-h-a/sales-insight/extractor/plaintext"
	"github.com/w-h-a/sales-insight/saleshelper"
	"github.com/w-h-a/sales-insight/vectorstore"
	memorybackend "github.com/w-h-a/sales-insight/vectorstore/memory"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type fixedEmbedder struct{}

func (e fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

const completion = `{"requirements": ["crm"], "recommendations": ["enterprise tier"], "summary": "crm call"}`

func newTestHandler(capability vectorstore.Capability) *Handler {
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		return completion, nil
	})

	a := analyzer.NewAnalyzer(gen)

	return NewHandler(
		a,
		plaintext.NewExtractor(),
		capability,
		saleshelper.NewAgent(a, capability, gen),
		chatagent.NewAgent(chatmemory.NewSessions(), capability, gen),
	)
}

func enabledCapability() vectorstore.Capability {
	return vectorstore.Enabled(vectorstore.NewStore(memorybackend.NewBackend(), fixedEmbedder{}))
}

func doJSON(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	h := newTestHandler(vectorstore.Disabled())
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.Equal(t, "healthy", rsp.Status)
	assert.Equal(t, "disabled", rsp.Services["vector_store"])
}

func TestAnalyzeTextStoresAndReturnsAnalysis(t *testing.T) {
	capability := enabledCapability()
	h := newTestHandler(capability)

	// An omitted store_in_db flag defaults to storing.
	rec := doJSON(t, h, http.MethodPost, "/api/analyze/text", textAnalysisRequest{
		Transcript:   "we discussed crm",
		TranscriptId: "t1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.Equal(t, "t1", rsp.TranscriptId)
	require.NotNil(t, rsp.Analysis)
	assert.Equal(t, []string{"crm"}, rsp.Analysis.Requirements)
	assert.NotContains(t, rsp.Analysis.Extra, "storage_warning")

	stored, err := capability.Store().Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "we discussed crm", stored.Text)
	assert.Equal(t, "text", stored.SourceType)
}

func TestAnalyzeTextStoreOptOut(t *testing.T) {
	capability := enabledCapability()
	h := newTestHandler(capability)

	optOut := false
	rec := doJSON(t, h, http.MethodPost, "/api/analyze/text", textAnalysisRequest{
		Transcript:   "we discussed crm",
		TranscriptId: "t1",
		StoreInDb:    &optOut,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.True(t, rsp.Success)

	// An explicit opt-out skips storage entirely.
	_, err := capability.Store().Get(context.Background(), "t1")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestAnalyzeTextEmptyTranscript(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/analyze/text", textAnalysisRequest{Transcript: "   "})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.False(t, rsp.Success)
}

func TestAnalyzeTextWithDisabledStoreWarns(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/analyze/text", textAnalysisRequest{
		Transcript: "we discussed crm",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	// Analysis succeeded; only the storage is flagged.
	assert.True(t, rsp.Success)
	require.NotNil(t, rsp.Analysis)
	assert.Contains(t, rsp.Analysis.Extra, "storage_warning")
}

func TestAnalyzeFile(t *testing.T) {
	capability := enabledCapability()
	h := newTestHandler(capability)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "call.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("client wants crm integration"))
	require.NoError(t, err)

	require.NoError(t, writer.WriteField("transcript_id", "f1"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.Equal(t, "file_txt", rsp.SourceType)

	stored, err := capability.Store().Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "file_txt", stored.SourceType)
}

func TestAnalyzeEmptyFileIsContentError(t *testing.T) {
	capability := enabledCapability()
	h := newTestHandler(capability)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_, err := writer.CreateFormFile("file", "empty.txt")
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("transcript_id", "f2"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var rsp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.False(t, rsp.Success)
	assert.Contains(t, rsp.Error, "extraction failed")

	// Nothing was stored for the failed upload.
	_, err = capability.Store().Get(context.Background(), "f2")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestSearchDisabledBackend(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/search", searchRequest{Query: "crm", TopK: 3})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.False(t, rsp.SearchEnabled)
	assert.Empty(t, rsp.Results)
}

func TestSearchReturnsStoredTranscripts(t *testing.T) {
	capability := enabledCapability()
	h := newTestHandler(capability)

	_, err := capability.Store().Upsert(context.Background(), "t1", "crm call", analyzer.Analysis{Summary: "crm"}, "text")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/api/search", searchRequest{Query: "crm call", TopK: 3})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.True(t, rsp.SearchEnabled)
	require.Equal(t, 1, rsp.Count)
	assert.Equal(t, "t1", rsp.Results[0].TranscriptId)
}

func TestGetTranscriptNotFound(t *testing.T) {
	h := newTestHandler(enabledCapability())

	req := httptest.NewRequest(http.MethodGet, "/api/transcripts/missing", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatMintsSessionId(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", chatRequest{Message: "hello"})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.NotEmpty(t, rsp.SessionId)
	assert.NotEmpty(t, rsp.Answer)
}

func TestChatClear(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", chatRequest{Message: "hello", SessionId: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/chat/clear", clearChatRequest{SessionId: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var rsp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.True(t, rsp.Success)
}

func TestChatHistory(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", chatRequest{Message: "hello", SessionId: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?session_id=s1", nil)
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp chatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.Equal(t, "s1", rsp.SessionId)
	require.Equal(t, 2, rsp.Count)
	assert.Equal(t, chatagent.RoleUser, rsp.History[0].Role)
	assert.Equal(t, "hello", rsp.History[0].Content)
	assert.Equal(t, chatagent.RoleAssistant, rsp.History[1].Role)
}

func TestChatHistoryUnknownSessionIsEmpty(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?session_id=nobody", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp chatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.Equal(t, 0, rsp.Count)
	assert.NotNil(t, rsp.History)
}

func TestChatHistoryRequiresSessionId(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSalesHelper(t *testing.T) {
	h := newTestHandler(enabledCapability())

	rec := doJSON(t, h, http.MethodPost, "/api/sales-helper", salesHelperRequest{
		SalespersonInput: "client needs crm integration",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var rsp salesHelperResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))

	assert.True(t, rsp.Success)
	assert.Equal(t, []string{"crm"}, rsp.Requirements)
	assert.NotEmpty(t, rsp.Recommendations)
}

func TestSalesHelperRequiresInput(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/sales-helper", salesHelperRequest{SalespersonInput: " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRequiresMessage(t *testing.T) {
	h := newTestHandler(vectorstore.Disabled())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", chatRequest{Message: ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "message is required"))
}
