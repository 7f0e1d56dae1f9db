package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helixir/research-assistant-service/internal/document"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/export"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for JSON bodies

// createSession handles POST /sessions.
func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotToSessionResponse(sess.Snapshot()))
}

// getSession handles GET /sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, snapshotToSessionResponse(sess.Snapshot()))
}

// deleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if err := s.sessions.Delete(sess.ID()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// discover handles POST /sessions/{sessionID}/discover. It accepts either a
// JSON body or a multipart form with a "query" field and an optional
// "document" file.
func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var (
		query, docText string
		err            error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		query, docText, err = s.readMultipartDiscover(w, r)
	} else {
		query, docText, err = s.readJSONDiscover(r)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.pipeline.Discover(ctx, sess, query, docText)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, discoveryToResponse(sess.ID(), result))
}

func (s *Server) readJSONDiscover(r *http.Request) (query, docText string, err error) {
	var req discoverRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return "", "", err
	}

	docText = req.DocumentText
	if req.DocumentURL != "" {
		if s.fetcher == nil || s.extractor == nil {
			return "", "", domain.NewValidationError("document_url", "document download is not enabled")
		}
		doc, err := s.fetcher.Download(r.Context(), req.DocumentURL)
		if err != nil {
			return "", "", err
		}
		text, err := s.extractor.Extract(doc.Filename, doc.ContentType, doc.Content)
		if err != nil {
			return "", "", err
		}
		logger := observability.LoggerFromContext(r.Context())
		logger.Debug().
			Str("sha256", doc.SHA256).
			Int("chars", len(text)).
			Msg("document downloaded")
		docText = strings.TrimSpace(docText + "\n" + text)
	}
	return req.Query, docText, nil
}

func (s *Server) readMultipartDiscover(w http.ResponseWriter, r *http.Request) (query, docText string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", fmt.Errorf("%w: upload exceeds %d bytes", document.ErrTooLarge, s.maxUploadBytes)
		}
		return "", "", domain.NewValidationError("body", "invalid multipart form")
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	query = r.FormValue("query")
	file, header, err := r.FormFile("document")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return query, "", nil
	case err != nil:
		return "", "", domain.NewValidationError("document", "unreadable upload")
	}
	defer func() { _ = file.Close() }()

	if s.extractor == nil {
		return "", "", domain.NewValidationError("document", "document upload is not enabled")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", domain.NewValidationError("document", "unreadable upload")
	}
	docText, err = s.extractor.Extract(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return "", "", err
	}
	return query, docText, nil
}

// listCandidates handles GET /sessions/{sessionID}/candidates.
func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, snapshotToCandidatesResponse(sess.Snapshot()))
}

// exportCandidates handles GET /sessions/{sessionID}/candidates/export and
// returns the candidate set as CSL-YAML. With ?selected=true only the
// selection is exported.
func (s *Server) exportCandidates(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	papers := sess.Snapshot().Candidates
	if r.URL.Query().Get("selected") == "true" {
		selected, _, err := sess.SelectedPapers()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		papers = selected
	}

	body, err := export.CSLYAML(papers)
	if err != nil {
		logger := observability.LoggerFromContext(r.Context())
		logger.Error().Err(err).Msg("CSL export failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeCSLYAML)
	w.Header().Set("Content-Disposition", `attachment; filename="references.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// setSelection handles PUT /sessions/{sessionID}/selection.
func (s *Server) setSelection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req selectionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.pipeline.SetSelection(sess, req.PaperIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selection: sess.Snapshot().Selection})
}

// runEnrichment handles POST /sessions/{sessionID}/enrichments/{kind}.
// Per-paper failures are reported inside a 200 response; an operation that
// could not run at all carries the mapped error status and the failed result.
func (s *Server) runEnrichment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	kind, err := domain.ParseEnrichmentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.pipeline.RunEnrichment(ctx, sess, kind)
	if err != nil {
		writeJSON(w, statusForError(err), enrichmentResponse{
			SessionID: sess.ID(),
			Result:    result,
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, enrichmentResponse{SessionID: sess.ID(), Result: result})
}

// detectIntent handles POST /intents.
func (s *Server) detectIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	intents, err := s.pipeline.DetectIntent(r.Context(), req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{Intents: intents})
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return domain.NewValidationError("body", "failed to read request body")
	}
	if len(body) > maxRequestBodySize {
		return domain.NewValidationError("body", "request body too large")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewValidationError("body", "invalid JSON request body")
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.NewValidationError(fe.Field(), fmt.Sprintf("failed %q validation", fe.Tag()))
		}
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}

// statusForError maps domain, session and document errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, document.ErrSSRF):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPrecondition), errors.Is(err, domain.ErrStaleDiscovery):
		return http.StatusConflict
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, document.ErrUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDistill), errors.Is(err, domain.ErrDiscovery),
		errors.Is(err, domain.ErrGenerative), errors.Is(err, document.ErrDownloadFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrRegistryFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Internal errors are not
// echoed to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		writeError(w, code, "internal server error")
		return
	}
	var de *domain.DiscoveryError
	if errors.As(err, &de) {
		writeJSON(w, code, discoveryErrorResponse(de))
		return
	}
	writeError(w, code, err.Error())
}

// Error codes for failed discoveries.
const (
	codeDiscoverySchema      = "discovery_schema"
	codeDiscoveryUnavailable = "discovery_unavailable"
)

// discoveryErrorResponse tells a provider that changed its response shape
// apart from one that could not be reached.
func discoveryErrorResponse(de *domain.DiscoveryError) errorResponse {
	if de.IsSchema() {
		return errorResponse{
			Error:  "The paper search service returned data in an unexpected format. Please try again later.",
			Code:   codeDiscoverySchema,
			Detail: de.Error(),
		}
	}
	return errorResponse{
		Error:  "The paper search service could not be reached. Please try again later.",
		Code:   codeDiscoveryUnavailable,
		Detail: de.Error(),
	}
}
