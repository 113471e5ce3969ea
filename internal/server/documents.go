package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"mixcue/internal/domain"
	"mixcue/internal/ingest"
)

type documentUploadForm struct {
	Document     huma.FormFile `form:"document" required:"true"`
	DocumentType string        `form:"document_type"`
}

func registerDocuments(api huma.API, cfg Config) {
	for _, v := range []struct {
		prefix string
		suffix string
	}{
		{prefix: "", suffix: ""},
		{prefix: "/client", suffix: "-client"},
	} {
		registerDocumentUpload(api, cfg, v.prefix, v.suffix)
		registerParseNotes(api, cfg, v.prefix, v.suffix)
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/events/{event_id}/documents",
		Summary:     "List parsed documents",
	}, func(ctx context.Context, input *struct {
		EventID string `path:"event_id"`
	}) (*struct {
		Body []domain.Document `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		docs, err := cfg.Ingest.Repo.ListDocuments(ctx, input.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Document `json:"body"`
		}{Body: docs}, nil
	})
}

func registerDocumentUpload(api huma.API, cfg Config, prefix, suffix string) {
	huma.Register(api, huma.Operation{
		OperationID: "upload-document" + suffix,
		Method:      http.MethodPost,
		Path:        prefix + "/events/{event_id}/documents/upload",
		Summary:     "Upload a document and map its extraction onto the forms",
	}, func(ctx context.Context, input *struct {
		EventID string                                        `path:"event_id"`
		RawBody huma.MultipartFormFiles[documentUploadForm] `contentType:"multipart/form-data"`
	}) (*struct {
		Body IngestResponse `json:"body"`
	}, error) {
		p, authErr := requireEventAccess(ctx, input.EventID)
		if authErr != nil {
			return nil, authErr
		}
		form := input.RawBody.Data()
		if !form.Document.IsSet {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "document file is required", nil)
		}
		res, err := cfg.Ingest.IngestDocument(ctx, input.EventID, clientUserID(p), p.ActorID,
			form.Document.Filename, form.DocumentType, form.Document)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IngestResponse `json:"body"`
		}{Body: ingestResponse(res)}, nil
	})
}

func registerParseNotes(api huma.API, cfg Config, prefix, suffix string) {
	huma.Register(api, huma.Operation{
		OperationID: "parse-notes" + suffix,
		Method:      http.MethodPost,
		Path:        prefix + "/events/{event_id}/documents/parse-notes",
		Summary:     "Parse pasted notes and map the extraction onto the forms",
	}, func(ctx context.Context, input *struct {
		EventID string            `path:"event_id"`
		Body    ParseNotesRequest `json:"body"`
	}) (*struct {
		Body IngestResponse `json:"body"`
	}, error) {
		p, authErr := requireEventAccess(ctx, input.EventID)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Notes == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "notes are required", nil)
		}
		res, err := cfg.Ingest.IngestNotes(ctx, input.EventID, clientUserID(p), p.ActorID, input.Body.Notes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IngestResponse `json:"body"`
		}{Body: ingestResponse(res)}, nil
	})
}

// clientUserID identifies whose chat a completed-refresh check targets;
// only client-key callers have one.
func clientUserID(p Principal) string {
	if p.Source == "client_key" {
		return p.ActorID
	}
	return ""
}

func ingestResponse(res ingest.Result) IngestResponse {
	return IngestResponse{
		Document:      res.Document,
		ParsedData:    res.Extraction,
		Saves:         res.Apply,
		ChatCompleted: res.ChatCompleted,
	}
}
