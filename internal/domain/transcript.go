package domain

import (
	"fmt"
	"strings"
)

// Speaker identifies which party produced an utterance.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// TranscriptEntry is one finalized utterance captured during a voice session.
type TranscriptEntry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered, append-only list of finalized utterances for one
// session. It is frozen when the session ends.
type Transcript []TranscriptEntry

// Format renders the transcript as one "- speaker: text" line per entry, the
// shape handed to the feedback prompt.
func (t Transcript) Format() string {
	var b strings.Builder
	for _, e := range t {
		fmt.Fprintf(&b, "- %s: %s\n", e.Speaker, e.Text)
	}
	return b.String()
}
