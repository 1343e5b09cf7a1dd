package models

// ── Request Types ────────────────────────────────────────

type SelectQuizRequest struct {
	QuizID string `json:"quiz_id"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type ResetRequest struct {
	QuizID string `json:"quiz_id,omitempty"`
}

// ── Response Types ────────────────────────────────────────

type ErrorResponse struct {
	Error string `json:"error"`
	Next  string `json:"next,omitempty"`
}

type Overview struct {
	AvailableQuizzes  []BankInfo `json:"available_quizzes"`
	CurrentQuiz       string     `json:"current_quiz"`
	State             Phase      `json:"state"`
	Attempts          int        `json:"attempts"`
	MaxAttempts       int        `json:"max_attempts"`
	AttemptsRemaining int        `json:"attempts_remaining"`
}

// QuestionView is the question at the current progress index. It never
// carries the correct answer.
type QuestionView struct {
	QuizID    string   `json:"quiz_id"`
	QuizTitle string   `json:"quiz_title"`
	Number    int      `json:"question_number"`
	Text      string   `json:"question_text"`
	Options   []string `json:"options"`
	HasImage  bool     `json:"has_image"`
	ImageURL  string   `json:"image_url,omitempty"`
	ImageAlt  string   `json:"image_alt,omitempty"`
	Position  int      `json:"question_index"`
	Total     int      `json:"total_questions"`
}

type AnswerReceipt struct {
	Answered int  `json:"answered"`
	Total    int  `json:"total_questions"`
	Finished bool `json:"finished"`
}

type AttemptResult struct {
	QuizID            string        `json:"quiz_id"`
	QuizTitle         string        `json:"quiz_title"`
	Score             int           `json:"score"`
	Total             int           `json:"total"`
	Percentage        float64       `json:"percentage"`
	WrongAnswers      []WrongAnswer `json:"wrong_answers"`
	Attempt           int           `json:"attempt"`
	MaxAttempts       int           `json:"max_attempts"`
	AttemptsRemaining int           `json:"attempts_remaining"`
}

// ProblemArea groups every recorded miss of one question.
type ProblemArea struct {
	QuestionNumber int           `json:"question_number"`
	QuestionText   string        `json:"question_text"`
	CorrectAnswer  string        `json:"correct_answer"`
	Misses         int           `json:"misses"`
	Records        []WrongAnswer `json:"records"`
}

type CompletionSummary struct {
	QuizID            string          `json:"quiz_id"`
	QuizTitle         string          `json:"quiz_title"`
	History           []AttemptRecord `json:"history"`
	WrongAnswers      []WrongAnswer   `json:"wrong_answers"`
	ProblemAreas      []ProblemArea   `json:"wrong_by_question"`
	TotalQuestions    int             `json:"total_questions"`
	TotalCorrect      int             `json:"total_correct"`
	OverallPercentage float64         `json:"overall_percentage"`
	Attempts          int             `json:"attempts"`
	MaxAttempts       int             `json:"max_attempts"`
}

type WrongAnswerLog struct {
	QuizID           string        `json:"current_quiz"`
	QuizTitle        string        `json:"quiz_title"`
	WrongAnswers     []WrongAnswer `json:"wrong_answers"`
	AvailableQuizzes []BankInfo    `json:"available_quizzes"`
}

type HistoryView struct {
	QuizID           string          `json:"current_quiz"`
	QuizTitle        string          `json:"quiz_title"`
	History          []AttemptRecord `json:"history"`
	AvailableQuizzes []BankInfo      `json:"available_quizzes"`
}

type Stats struct {
	CurrentQuiz       string          `json:"current_quiz"`
	Attempts          int             `json:"attempts"`
	WrongAnswersCount int             `json:"wrong_answers_count"`
	QuizHistory       []AttemptRecord `json:"quiz_history"`
	AllAttempts       map[string]int  `json:"all_attempts"`
	AvailableQuizzes  []BankInfo      `json:"available_quizzes"`
}
