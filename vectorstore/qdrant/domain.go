package qdrant

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/w-h-a/sales-insight/analyzer"
	getsafe "github.com/w-h-a/sales-insight/util/get_safe"
	"github.com/w-h-a/sales-insight/vectorstore"
)

// pointId maps a record id onto an id Qdrant accepts. Qdrant point ids must
// be UUIDs or unsigned integers, so any other caller-supplied id is mapped
// to a deterministic UUID; the original id is kept in the payload.
func pointId(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantStatus struct {
	State string `json:"status"`
	Error string `json:"error,omitempty"`
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantPoint struct {
	Id      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
	Vector  []float32      `json:"vector"`
}

func (p qdrantPoint) toRecord() vectorstore.Record {
	payload := p.Payload

	id := getsafe.String(payload, "id")
	if len(id) == 0 {
		id = p.Id
	}

	return vectorstore.Record{
		Id:         id,
		Text:       getsafe.String(payload, "text"),
		Analysis:   decodeAnalysis(payload["analysis"]),
		SourceType: getsafe.String(payload, "source_type"),
		Embedding:  p.Vector,
		CreatedAt:  getsafe.Time(payload, "created_at"),
	}
}

func decodeAnalysis(raw any) analyzer.Analysis {
	var analysis analyzer.Analysis

	if raw == nil {
		return analysis
	}

	bs, err := json.Marshal(raw)
	if err != nil {
		return analysis
	}

	_ = json.Unmarshal(bs, &analysis)

	return analysis
}
