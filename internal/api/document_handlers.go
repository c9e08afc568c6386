package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/sse"
)

func (s *Server) registerDocumentRoutes() {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "getDocument",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{username}",
		Summary:     "Fetch a user document",
		Description: "Returns the whole document stored for username",
		Tags:        []string{"Documents"},
		Security:    security,
	}, s.handleGetDocument)

	huma.Register(s.api, huma.Operation{
		OperationID:   "putDocument",
		Method:        http.MethodPut,
		Path:          "/api/v1/documents/{username}",
		Summary:       "Overwrite a user document",
		Description:   "Replaces the document stored for username. Concurrent writers follow last-write-wins.",
		Tags:          []string{"Documents"},
		Security:      security,
		MaxBodyBytes:  s.opts.MaxBodyBytes,
		DefaultStatus: http.StatusOK,
	}, s.handlePutDocument)
}

// DocumentPathInput selects a document.
type DocumentPathInput struct {
	Username string `path:"username" minLength:"1" maxLength:"64" doc:"Document owner"`
}

// PutDocumentInput carries the replacement document.
type PutDocumentInput struct {
	Username string `path:"username" minLength:"1" maxLength:"64" doc:"Document owner"`
	RawBody  []byte `contentType:"application/json"`
}

// DocumentMetadata summarizes a stored document.
type DocumentMetadata struct {
	Username    string    `json:"username"`
	Books       int       `json:"books"`
	Quotes      int       `json:"quotes"`
	Devices     int       `json:"devices"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

// DocumentResponse is the body of both document operations.
type DocumentResponse struct {
	Record   *domain.Document  `json:"record"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// DocumentOutput wraps DocumentResponse for Huma.
type DocumentOutput struct {
	Body DocumentResponse
}

func metadataOf(doc *domain.Document) *DocumentMetadata {
	return &DocumentMetadata{
		Username:    doc.Username,
		Books:       len(doc.Books),
		Quotes:      doc.QuoteCount(),
		Devices:     len(doc.DeviceSelections),
		LastUpdated: doc.LastUpdated,
	}
}

func (s *Server) handleGetDocument(ctx context.Context, input *DocumentPathInput) (*DocumentOutput, error) {
	if err := authorize(ctx, input.Username); err != nil {
		return nil, asStatus(err)
	}

	doc, err := s.store.FetchDocument(ctx, input.Username)
	if err != nil {
		if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			s.logger.Error("document read failed", "username", input.Username, "error", err)
		}
		return nil, asStatus(err)
	}
	return &DocumentOutput{Body: DocumentResponse{Record: doc}}, nil
}

func (s *Server) handlePutDocument(ctx context.Context, input *PutDocumentInput) (*DocumentOutput, error) {
	if err := authorize(ctx, input.Username); err != nil {
		return nil, asStatus(err)
	}

	var doc domain.Document
	if err := json.Unmarshal(input.RawBody, &doc); err != nil {
		return nil, asStatus(domainerrors.Format("request body is not a valid document"))
	}
	if strings.TrimSpace(doc.Username) == "" {
		doc.Username = input.Username
	}
	if doc.Username != input.Username {
		return nil, asStatus(domainerrors.Validationf("document username %q does not match path %q", doc.Username, input.Username))
	}

	if err := s.store.WriteDocument(ctx, &doc); err != nil {
		s.logger.Error("document write failed", "username", input.Username, "error", err)
		return nil, asStatus(err)
	}

	s.events.Emit(sse.NewDocumentUpdatedEvent(&doc))

	s.logger.Info("document stored",
		"username", doc.Username,
		"books", len(doc.Books),
		"quotes", doc.QuoteCount())
	return &DocumentOutput{Body: DocumentResponse{Record: &doc, Metadata: metadataOf(&doc)}}, nil
}

// handleDocumentEvents streams document.updated notifications for one
// user. It sits outside huma because the response never completes.
func (s *Server) handleDocumentEvents(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := authorize(r.Context(), username); err != nil {
		var de *domainerrors.Error
		if !errors.As(err, &de) {
			de = domainerrors.Internal("authorization failed")
		}
		writeError(w, de)
		return
	}
	s.streams.Stream(w, r, username)
}
