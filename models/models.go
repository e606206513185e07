package models

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one line of the conversation log.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToText renders the entry for the tview chat pane.
func (e Entry) ToText(i int, userIcon, assistantIcon string) string {
	icon := ""
	switch e.Role {
	case RoleAssistant:
		icon = fmt.Sprintf("(%d) %s", i, assistantIcon)
	case RoleUser:
		icon = fmt.Sprintf("(%d) %s", i, userIcon)
	default:
		icon = fmt.Sprintf("(%d) <%s>: ", i, e.Role)
	}
	textMsg := fmt.Sprintf("[-:-:b]%s[-:-:-]\n%s\n", icon, e.Content)
	return strings.ReplaceAll(textMsg, "\n\n", "\n")
}

// ToExport is the "{role}: {content}" form used by log export.
func (e Entry) ToExport() string {
	return fmt.Sprintf("%s: %s", e.Role, e.Content)
}

// State is the controller's single current pipeline stage.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateGenerating
	StateSynthesizing
	StatePlayingBack
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateGenerating:
		return "generating"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlayingBack:
		return "playing"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Loading reports whether a remote call of the current turn is in flight.
func (s State) Loading() bool {
	return s == StateTranscribing || s == StateGenerating || s == StateSynthesizing
}

// AcceptsInput reports whether a new recording or upload may begin.
// Playback is interruptible, every other non-idle stage is not.
func (s State) AcceptsInput() bool {
	return s == StateIdle || s == StatePlayingBack
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
