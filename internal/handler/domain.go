package handler

import (
	"time"

	"github.com/w-h-a/sales-insight/analyzer"
	"github.com/w-h-a/sales-insight/chatagent"
)

type textAnalysisRequest struct {
	Transcript   string `json:"transcript"`
	TranscriptId string `json:"transcript_id,omitempty"`
	// A nil StoreInDb means store; callers opt out explicitly.
	StoreInDb *bool `json:"store_in_db,omitempty"`
}

type analysisResponse struct {
	Success      bool               `json:"success"`
	TranscriptId string             `json:"transcript_id,omitempty"`
	Transcript   string             `json:"transcript,omitempty"`
	Analysis     *analyzer.Analysis `json:"analysis,omitempty"`
	SourceType   string             `json:"source_type,omitempty"`
	RawOutput    string             `json:"raw_output,omitempty"`
	Error        string             `json:"error,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResult struct {
	TranscriptId   string            `json:"transcript_id"`
	TranscriptText string            `json:"transcript_text"`
	Analysis       analyzer.Analysis `json:"analysis"`
	SourceType     string            `json:"source_type"`
	Timestamp      time.Time         `json:"timestamp"`
	Distance       float64           `json:"distance"`
}

type searchResponse struct {
	Success       bool           `json:"success"`
	Results       []searchResult `json:"results"`
	Count         int            `json:"count"`
	SearchEnabled bool           `json:"search_enabled"`
	Error         string         `json:"error,omitempty"`
}

type salesHelperRequest struct {
	SalespersonInput string `json:"salesperson_input"`
}

type salesHelperResponse struct {
	Success         bool           `json:"success"`
	Requirements    []string       `json:"requirements,omitempty"`
	Matches         []searchResult `json:"matches,omitempty"`
	Recommendations string         `json:"recommendations,omitempty"`
	SearchDisabled  bool           `json:"search_disabled,omitempty"`
	Error           string         `json:"error,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Success     bool     `json:"success"`
	Answer      string   `json:"answer,omitempty"`
	SessionId   string   `json:"session_id,omitempty"`
	UsedContext []string `json:"used_context,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type chatHistoryResponse struct {
	Success   bool             `json:"success"`
	SessionId string           `json:"session_id,omitempty"`
	History   []chatagent.Turn `json:"history"`
	Count     int              `json:"count"`
	Error     string           `json:"error,omitempty"`
}

type clearChatRequest struct {
	SessionId string `json:"session_id"`
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
