package models

import "time"

// ── Session Schema ──────────────────────────────────────

// Session is the per-user quiz state persisted in the session store.
// Maps are keyed by bank id.
type Session struct {
	SelectedQuiz string                     `json:"selected_quiz"`
	Attempts     map[string]int             `json:"attempts"`
	WrongAnswers map[string][]WrongAnswer   `json:"wrong_answers"`
	History      map[string][]AttemptRecord `json:"quiz_history"`
	Active       *ActiveAttempt             `json:"active_attempt,omitempty"`
}

// ActiveAttempt exists only while the user is mid-quiz.
type ActiveAttempt struct {
	BankID    string        `json:"quiz_id"`
	Questions []Question    `json:"questions"`
	Index     int           `json:"current_question"`
	Score     int           `json:"current_score"`
	Wrong     []WrongAnswer `json:"current_wrong"`
	StartedAt time.Time     `json:"started_at"`
}

type WrongAnswer struct {
	QuestionNumber int       `json:"question_number"`
	QuestionText   string    `json:"question_text"`
	UserAnswer     string    `json:"user_answer"`
	CorrectAnswer  string    `json:"correct_answer"`
	Timestamp      time.Time `json:"timestamp"`
	Attempt        int       `json:"attempt"`
	BankID         string    `json:"quiz_id"`
}

type AttemptRecord struct {
	Attempt    int       `json:"attempt"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
	WrongCount int       `json:"wrong_count"`
	Timestamp  time.Time `json:"timestamp"`
	BankID     string    `json:"quiz_id"`
}

// NewSession returns the first-contact state.
func NewSession() *Session {
	return &Session{
		Attempts:     map[string]int{},
		WrongAnswers: map[string][]WrongAnswer{},
		History:      map[string][]AttemptRecord{},
	}
}

// Normalize re-creates missing substructures and drops an active attempt
// whose progress no longer fits its question list. It is run once per load.
func (s *Session) Normalize() {
	if s.Attempts == nil {
		s.Attempts = map[string]int{}
	}
	if s.WrongAnswers == nil {
		s.WrongAnswers = map[string][]WrongAnswer{}
	}
	if s.History == nil {
		s.History = map[string][]AttemptRecord{}
	}
	for id, n := range s.Attempts {
		if n < 0 {
			s.Attempts[id] = 0
		}
	}
	if a := s.Active; a != nil {
		if a.BankID == "" || len(a.Questions) == 0 || a.Index < 0 || a.Index > len(a.Questions) {
			s.Active = nil
		}
	}
}

// Clone returns a deep copy. Question values are shared read-only.
func (s *Session) Clone() *Session {
	c := &Session{
		SelectedQuiz: s.SelectedQuiz,
		Attempts:     make(map[string]int, len(s.Attempts)),
		WrongAnswers: make(map[string][]WrongAnswer, len(s.WrongAnswers)),
		History:      make(map[string][]AttemptRecord, len(s.History)),
	}
	for k, v := range s.Attempts {
		c.Attempts[k] = v
	}
	for k, v := range s.WrongAnswers {
		c.WrongAnswers[k] = append([]WrongAnswer(nil), v...)
	}
	for k, v := range s.History {
		c.History[k] = append([]AttemptRecord(nil), v...)
	}
	if a := s.Active; a != nil {
		c.Active = &ActiveAttempt{
			BankID:    a.BankID,
			Questions: append([]Question(nil), a.Questions...),
			Index:     a.Index,
			Score:     a.Score,
			Wrong:     append([]WrongAnswer(nil), a.Wrong...),
			StartedAt: a.StartedAt,
		}
	}
	return c
}

// ── Attempt State ───────────────────────────────────────

// Phase is the attempt state of one (session, bank) pair.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseFinished
	PhaseLocked
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	case PhaseLocked:
		return "locked"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Phase derives the state of bankID. An active attempt on the bank wins over
// the attempt ceiling.
func (s *Session) Phase(bankID string, maxAttempts int) Phase {
	if a := s.Active; a != nil && a.BankID == bankID {
		if a.Index < len(a.Questions) {
			return PhaseInProgress
		}
		return PhaseFinished
	}
	if s.Attempts[bankID] >= maxAttempts {
		return PhaseLocked
	}
	return PhaseIdle
}
