package mixcuesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal MixCue HTTP API client for one event.
type Client struct {
	BaseURL     string
	EventID     string
	ClientKey   string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. The timeout is minutes-scale
// because document parsing waits on a remote AI service.
func New(baseURL, eventID string) *Client {
	return &Client{
		BaseURL: baseURL,
		EventID: eventID,
		Timeout: 3 * time.Minute,
	}
}

// ChatProgress mirrors the API chat progress model.
type ChatProgress struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	CurrentStep int               `json:"current_step"`
	Answers     map[string]string `json:"answers"`
	IsCompleted bool              `json:"is_completed"`
}

// ChatMessage is one transcript entry.
type ChatMessage struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	IsBot     bool     `json:"is_bot"`
	Timestamp int64    `json:"timestamp"`
	Options   []string `json:"options,omitempty"`
}

// StepData describes the next question to render.
type StepData struct {
	Question  string   `json:"question"`
	Options   []string `json:"options,omitempty"`
	InputType string   `json:"input_type"`
	NextStep  int      `json:"next_step,omitempty"`
}

// ChatState is the GET chat-progress response.
type ChatState struct {
	ChatProgress    ChatProgress  `json:"chat_progress"`
	Messages        []ChatMessage `json:"messages"`
	CurrentStepData *StepData     `json:"current_step_data,omitempty"`
	IsCompleted     bool          `json:"is_completed"`
	DJCalendarLink  string        `json:"dj_calendar_link,omitempty"`
}

// SubmitResult is the POST chat-progress response.
type SubmitResult struct {
	ChatProgress ChatProgress `json:"chat_progress"`
	NextStepData *StepData    `json:"next_step_data,omitempty"`
	BotMessage   *ChatMessage `json:"bot_message,omitempty"`
	IsCompleted  bool         `json:"is_completed"`
	Deduped      bool         `json:"deduped,omitempty"`
}

// SaveOutcome is one domain's save status after an ingest or fill.
type SaveOutcome struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ApplyResult groups the per-domain outcomes.
type ApplyResult struct {
	Planning SaveOutcome `json:"planning"`
	Music    SaveOutcome `json:"music"`
	Timeline SaveOutcome `json:"timeline"`
}

// FillFormsResult is the fill-forms response.
type FillFormsResult struct {
	Message string      `json:"message"`
	Saves   ApplyResult `json:"saves"`
}

// Extraction is the parser's output shape.
type Extraction struct {
	ExtractedFields map[string]any `json:"extractedFields"`
	ConfidenceScore float64        `json:"confidenceScore"`
}

// IngestResult is the upload / parse-notes response.
type IngestResult struct {
	ParsedData    Extraction  `json:"parsed_data"`
	Saves         ApplyResult `json:"saves"`
	ChatCompleted bool        `json:"chat_completed"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// LoadChat fetches (or lazily starts) the event's conversation.
func (c *Client) LoadChat(ctx context.Context) (ChatState, error) {
	var resp ChatState
	err := c.do(ctx, http.MethodGet, c.clientPath("chat-progress"), nil, &resp)
	return resp, err
}

// SubmitAnswer persists one answer for the given step.
func (c *Client) SubmitAnswer(ctx context.Context, step int, answer string) (SubmitResult, error) {
	body := map[string]any{"step": step, "answer": answer}
	var resp SubmitResult
	err := c.do(ctx, http.MethodPost, c.clientPath("chat-progress"), body, &resp)
	return resp, err
}

// FillForms maps the chat's answers onto the planning forms.
func (c *Client) FillForms(ctx context.Context) (FillFormsResult, error) {
	var resp FillFormsResult
	err := c.do(ctx, http.MethodPost, c.clientPath("chat-progress/fill-forms"), nil, &resp)
	return resp, err
}

// ParseNotes sends pasted notes for extraction and form filling.
func (c *Client) ParseNotes(ctx context.Context, notes string) (IngestResult, error) {
	body := map[string]string{"notes": notes}
	var resp IngestResult
	err := c.do(ctx, http.MethodPost, c.clientPath("documents/parse-notes"), body, &resp)
	return resp, err
}

// UploadDocument uploads a file for extraction and form filling.
func (c *Client) UploadDocument(ctx context.Context, filename, docType string, content io.Reader) (IngestResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return IngestResult{}, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return IngestResult{}, err
	}
	if docType != "" {
		if err := w.WriteField("document_type", docType); err != nil {
			return IngestResult{}, err
		}
	}
	if err := w.Close(); err != nil {
		return IngestResult{}, err
	}

	endpoint := c.base() + "/" + c.clientPath("documents/upload")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return IngestResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)

	var resp IngestResult
	if err := c.send(req, &resp); err != nil {
		return IngestResult{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+"/"+strings.TrimLeft(endpoint, "/"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ClientKey != "":
		req.Header.Set("X-Client-Key", c.ClientKey)
	}
}

func (c *Client) clientPath(p string) string {
	event := url.PathEscape(c.EventID)
	return fmt.Sprintf("v0/client/events/%s/%s", event, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
