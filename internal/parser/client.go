// Package parser talks to the remote AI extraction service. Documents and
// pasted notes go out, an extraction comes back; nothing here mutates local
// state.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"mixcue/internal/config"
	"mixcue/internal/domain"
)

// Client is the extraction contract the ingest orchestrator depends on.
type Client interface {
	ParseDocument(ctx context.Context, eventID, filename, docType string, content io.Reader) (domain.Extraction, error)
	ParseNotes(ctx context.Context, eventID, notes string) (domain.Extraction, error)
}

// HTTPClient calls the hosted parser. AI turnaround is slow, so the timeout
// is minutes-scale rather than the usual seconds.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(cfg.Parser.BaseURL, "/"),
		APIKey:  cfg.Parser.APIKey,
		HTTP:    &http.Client{Timeout: cfg.ParserTimeout()},
	}
}

type parseEnvelope struct {
	Data struct {
		ParsedData *domain.Extraction `json:"parsed_data"`
		// The notes endpoint returns the extraction at the top of data.
		ExtractedFields map[string]any `json:"extractedFields"`
		ConfidenceScore float64        `json:"confidenceScore"`
	} `json:"data"`
	Message string `json:"message"`
}

// ParseDocument uploads a file and returns the extraction the service
// produced for it.
func (c *HTTPClient) ParseDocument(ctx context.Context, eventID, filename, docType string, content io.Reader) (domain.Extraction, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("event_id", eventID); err != nil {
		return domain.Extraction{}, err
	}
	if docType != "" {
		if err := w.WriteField("document_type", docType); err != nil {
			return domain.Extraction{}, err
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return domain.Extraction{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return domain.Extraction{}, fmt.Errorf("read document: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.Extraction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/documents/parse", &body)
	if err != nil {
		return domain.Extraction{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

// ParseNotes sends pasted free-text notes for extraction.
func (c *HTTPClient) ParseNotes(ctx context.Context, eventID, notes string) (domain.Extraction, error) {
	payload, err := json.Marshal(map[string]string{
		"event_id": eventID,
		"notes":    notes,
	})
	if err != nil {
		return domain.Extraction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/notes/parse", bytes.NewReader(payload))
	if err != nil {
		return domain.Extraction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (domain.Extraction, error) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	httpc := c.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: 3 * time.Minute}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("parser request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read parser response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Extraction{}, fmt.Errorf("parser returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var env parseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Extraction{}, fmt.Errorf("decode parser response: %w", err)
	}
	if env.Data.ParsedData != nil {
		return *env.Data.ParsedData, nil
	}
	return domain.Extraction{
		ExtractedFields: env.Data.ExtractedFields,
		ConfidenceScore: env.Data.ConfidenceScore,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
