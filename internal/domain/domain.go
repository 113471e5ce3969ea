package domain

// Event is the aggregate root every form and chat progress hangs off.
type Event struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CoupleNames    string `json:"couple_names,omitempty"`
	EventDate      string `json:"event_date,omitempty" format:"date"`
	DJCalendarLink string `json:"dj_calendar_link,omitempty"`
	Status         string `json:"status" enum:"active,archived"`
	CreatedAt      string `json:"created_at" format:"date-time"`
}

// ChatProgress tracks a client's walk through the planning conversation.
// current_step only advances through a successful answer save, and
// is_completed never reverts once set.
type ChatProgress struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	CurrentStep int               `json:"current_step"`
	Answers     map[string]string `json:"answers"`
	IsCompleted bool              `json:"is_completed"`
	Archived    bool              `json:"archived,omitempty"`
	CreatedAt   string            `json:"created_at" format:"date-time"`
	UpdatedAt   string            `json:"updated_at" format:"date-time"`
}

// ChatMessage is one entry in a progress record's persisted transcript.
type ChatMessage struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	IsBot     bool     `json:"is_bot"`
	Timestamp int64    `json:"timestamp"`
	Options   []string `json:"options,omitempty"`
}

// StepData describes the next question the bot should ask.
type StepData struct {
	Question  string   `json:"question"`
	Options   []string `json:"options,omitempty"`
	InputType string   `json:"input_type" enum:"text,options,upload,date,time,link"`
	NextStep  int      `json:"next_step,omitempty"`
}

// Extraction is the AI parser's result. ExtractedFields is keyed by planning
// field names plus the special "songs", "timeline_times" and
// "timeline_activities" entries. Consumers never mutate it.
type Extraction struct {
	ExtractedFields map[string]any `json:"extractedFields"`
	ConfidenceScore float64        `json:"confidenceScore"`
}

// ExtractedSong is one entry of the parser's "songs" array.
type ExtractedSong struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Category string `json:"category"`
}

// Document records a parsed upload. Raw bytes are not retained.
type Document struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id"`
	Filename   string  `json:"filename"`
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

// Activity is one append-only log row.
type Activity struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EventID    string `json:"event_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ClientLink is a shareable access key for the client-facing endpoints,
// stored hashed.
type ClientLink struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
