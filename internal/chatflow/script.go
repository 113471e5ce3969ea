package chatflow

import "mixcue/internal/domain"

// Answer values the controller intercepts before generic submission.
const (
	AnswerUploadTimeline = "Upload Timeline"
	AnswerCalendarLink   = "Calendar Link"
	AnswerNotYet         = "Not yet"
	AnswerDone           = "Done"
)

// CompletionPhrase is the bot's closing line. The calendar-link fragment is
// appended at serve time by AugmentCalendarLink, never persisted, so replays
// cannot double-append it.
const CompletionPhrase = "That's everything I need! Your DJ will take it from here."

// step is one scripted question. AnswerKey names the extraction field the
// answer feeds when the forms are filled from the transcript.
type step struct {
	Question  string
	Options   []string
	InputType string
	AnswerKey string
}

var script = []step{
	{
		Question:  "Hi! I'm your DJ's planning assistant. Let's get the basics down. What are the couple's names?",
		InputType: "text",
		AnswerKey: "coupleNames",
	},
	{
		Question:  "When is the big day?",
		InputType: "date",
		AnswerKey: "eventDate",
	},
	{
		Question:  "About how many guests are you expecting?",
		InputType: "text",
		AnswerKey: "guestCount",
	},
	{
		Question:  "What time does the ceremony start?",
		InputType: "time",
		AnswerKey: "ceremonyStartTime",
	},
	{
		Question:  "Do you already have a day-of timeline?",
		Options:   []string{AnswerUploadTimeline, AnswerCalendarLink, AnswerNotYet},
		InputType: "options",
		AnswerKey: "timelineChoice",
	},
	{
		Question:  "List a few must-play songs, one per line.",
		InputType: "text",
		AnswerKey: "mustPlaySongs",
	},
	{
		Question:  "Anything else your DJ should know? Send notes, or tap Done.",
		Options:   []string{AnswerDone},
		InputType: "text",
		AnswerKey: "finalNotes",
	},
}

// FirstStep is where every fresh progress record starts.
const FirstStep = 1

// LastStep is the final question; answering it completes the chat.
func LastStep() int { return len(script) }

// StepData returns the scripted question for a 1-based step number, or
// false when the step is out of range.
func StepData(n int) (domain.StepData, bool) {
	if n < FirstStep || n > len(script) {
		return domain.StepData{}, false
	}
	s := script[n-1]
	sd := domain.StepData{
		Question:  s.Question,
		Options:   s.Options,
		InputType: s.InputType,
	}
	if n < len(script) {
		sd.NextStep = n + 1
	}
	return sd, true
}

func answerKey(n int) string {
	if n < FirstStep || n > len(script) {
		return ""
	}
	return script[n-1].AnswerKey
}
