package session

import "time"

// Mode identifies which conversation flow a session belongs to.
type Mode string

const (
	ModeRegistration Mode = "registration"
	ModeDevTesting   Mode = "dev_testing"
)

// State is the position of a chat inside a conversation flow. A chat with no
// stored session is idle.
type State string

const (
	StateWaitingDiscipline State = "waiting_discipline"
	StateWaitingTeacher    State = "waiting_teacher"
	StateWaitingDateTime   State = "waiting_datetime"
	StateWaitingSource     State = "waiting_source"

	StateWaitingDevDiscipline State = "waiting_dev_discipline"
	StateWaitingDevTeacher    State = "waiting_dev_teacher"
	StateWaitingDevDateTime   State = "waiting_dev_datetime"
	StateWaitingTranscript    State = "waiting_transcript"

	// StateProcessing pins the session while a pipeline run is in flight.
	StateProcessing State = "processing"
)

// Fields accumulates the lecture metadata collected turn by turn.
type Fields struct {
	Discipline  string `json:"discipline,omitempty"`
	Teacher     string `json:"teacher,omitempty"`
	LectureDate string `json:"lecture_date,omitempty"`
	LectureTime string `json:"lecture_time,omitempty"`
	SourceRef   string `json:"source_ref,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
}

// Session is the per-chat conversation record kept in the store.
type Session struct {
	ChatID    string    `json:"chat_id"`
	Mode      Mode      `json:"mode"`
	State     State     `json:"state"`
	Fields    Fields    `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a fresh session positioned at the first state of the mode.
func New(chatID string, mode Mode) *Session {
	now := time.Now()
	s := &Session{
		ChatID:    chatID,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch mode {
	case ModeDevTesting:
		s.State = StateWaitingDevDiscipline
	default:
		s.State = StateWaitingDiscipline
	}
	return s
}

// Advance moves the session to the given state and refreshes UpdatedAt.
func (s *Session) Advance(state State) {
	s.State = state
	s.UpdatedAt = time.Now()
}

// Processing reports whether a pipeline run is in flight for this session.
func (s *Session) Processing() bool {
	return s.State == StateProcessing
}
