package httpserver

import (
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/pipeline"
	"github.com/helixir/research-assistant-service/internal/session"
)

// Request and response types for JSON serialization.

type errorResponse struct {
	Error string `json:"error"`
	// Code distinguishes failures that share a status, e.g. the two kinds of
	// discovery failure.
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type discoverRequest struct {
	Query        string `json:"query" validate:"required_without_all=DocumentText DocumentURL,max=10000"`
	DocumentText string `json:"document_text,omitempty" validate:"max=2000000"`
	DocumentURL  string `json:"document_url,omitempty" validate:"omitempty,url,startswith=http"`
}

type selectionRequest struct {
	PaperIDs []string `json:"paper_ids" validate:"required,max=100,dive,required,max=256"`
}

type intentRequest struct {
	Message string `json:"message" validate:"required,max=10000"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Sequence   uint64    `json:"sequence"`
	Query      string    `json:"query,omitempty"`
	Phrase     string    `json:"phrase,omitempty"`
	Candidates int       `json:"candidates"`
	Selection  []string  `json:"selection"`
}

type candidatesResponse struct {
	Sequence   uint64                `json:"sequence"`
	Phrase     string                `json:"phrase,omitempty"`
	Candidates []*domain.PaperRecord `json:"candidates"`
	TitleIndex domain.TitleIndex     `json:"title_index"`
	Selection  []string              `json:"selection"`
}

type discoverResponse struct {
	SessionID  string                `json:"session_id"`
	Sequence   uint64                `json:"sequence"`
	Phrase     string                `json:"phrase"`
	Candidates []*domain.PaperRecord `json:"candidates"`
	TitleIndex domain.TitleIndex     `json:"title_index"`
	Selection  []string              `json:"selection"`
	Response   string                `json:"response"`
}

type selectionResponse struct {
	Selection []string `json:"selection"`
}

type enrichmentResponse struct {
	SessionID string                   `json:"session_id"`
	Result    *domain.EnrichmentResult `json:"result"`
	Error     string                   `json:"error,omitempty"`
}

type intentResponse struct {
	Intents []llm.Intent `json:"intents"`
}

// Converter functions

func snapshotToSessionResponse(snap session.Snapshot) sessionResponse {
	return sessionResponse{
		ID:         snap.ID,
		CreatedAt:  snap.CreatedAt,
		Sequence:   snap.Sequence,
		Query:      snap.Query,
		Phrase:     snap.Phrase,
		Candidates: len(snap.Candidates),
		Selection:  snap.Selection,
	}
}

func snapshotToCandidatesResponse(snap session.Snapshot) candidatesResponse {
	return candidatesResponse{
		Sequence:   snap.Sequence,
		Phrase:     snap.Phrase,
		Candidates: snap.Candidates,
		TitleIndex: snap.TitleIndex,
		Selection:  snap.Selection,
	}
}

func discoveryToResponse(sessionID string, d *pipeline.Discovery) discoverResponse {
	return discoverResponse{
		SessionID:  sessionID,
		Sequence:   d.Sequence,
		Phrase:     d.Phrase,
		Candidates: d.Candidates,
		TitleIndex: d.TitleIndex,
		Selection:  d.Selection,
		Response:   d.Listing,
	}
}
