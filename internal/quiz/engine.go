package quiz

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/quizbank/backend/internal/models"
)

const (
	DefaultMaxAttempts = 5
	DefaultSampleSize  = 10
)

// Soft outcomes. None of these leave a session half-mutated; the handler
// turns each into a "go here next" hint for the client.
var (
	ErrNoQuizData          = errors.New("no quiz data")
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrNoActiveAttempt     = errors.New("no active attempt")
	ErrAttemptFinished     = errors.New("attempt finished, finalize it")
	ErrAttemptInProgress   = errors.New("attempt still in progress")
)

// Repository is the read-only quiz bank source the engine consumes.
type Repository interface {
	ListAvailable() []models.BankInfo
	Bank(id string) (models.BankInfo, bool)
	SampleQuestions(id string, count int) []models.Question
	VerifyAnswer(id string, number int, answer string) bool
}

// Percentage returns score/total as a percentage rounded to two decimals,
// or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}

// ── Transitions ─────────────────────────────────────────
//
// The functions below mutate a session in place and are only ever handed a
// private copy by Service.

// resolveSelection points SelectedQuiz at an available bank, falling back
// to the first one. It returns false when nothing is available.
func resolveSelection(sess *models.Session, available []models.BankInfo) bool {
	if len(available) == 0 {
		return false
	}
	for _, b := range available {
		if b.ID == sess.SelectedQuiz {
			return true
		}
	}
	sess.SelectedQuiz = available[0].ID
	return true
}

func selectBank(sess *models.Session, available []models.BankInfo, bankID string) {
	for _, b := range available {
		if b.ID == bankID {
			sess.SelectedQuiz = bankID
			return
		}
	}
}

func startAttempt(sess *models.Session, repo Repository, maxAttempts, sampleSize int, now time.Time) error {
	bankID := sess.SelectedQuiz
	if bankID == "" {
		return ErrNoQuizData
	}
	if sess.Attempts[bankID] >= maxAttempts {
		return ErrAttemptLimitReached
	}

	questions := repo.SampleQuestions(bankID, sampleSize)
	if len(questions) == 0 {
		return ErrNoQuizData
	}

	sess.Active = &models.ActiveAttempt{
		BankID:    bankID,
		Questions: questions,
		Wrong:     []models.WrongAnswer{},
		StartedAt: now,
	}
	return nil
}

func currentQuestion(sess *models.Session, maxAttempts int) (models.Question, error) {
	a := sess.Active
	if a == nil {
		return models.Question{}, ErrNoActiveAttempt
	}
	if sess.Phase(a.BankID, maxAttempts) == models.PhaseFinished {
		return models.Question{}, ErrAttemptFinished
	}
	return a.Questions[a.Index], nil
}

// submitAnswer scores raw against the question at the progress index and
// always advances. A retried submit therefore lands on the next question.
func submitAnswer(sess *models.Session, repo Repository, maxAttempts int, raw string, now time.Time) (bool, error) {
	q, err := currentQuestion(sess, maxAttempts)
	if err != nil {
		return false, err
	}
	a := sess.Active

	correct := repo.VerifyAnswer(a.BankID, q.Number, raw)
	if correct {
		a.Score++
	} else {
		record := models.WrongAnswer{
			QuestionNumber: q.Number,
			QuestionText:   q.Text,
			UserAnswer:     raw,
			CorrectAnswer:  q.CorrectAnswer,
			Timestamp:      now,
			Attempt:        sess.Attempts[a.BankID] + 1,
			BankID:         a.BankID,
		}
		a.Wrong = append(a.Wrong, record)
		sess.WrongAnswers[a.BankID] = append(sess.WrongAnswers[a.BankID], record)
	}
	a.Index++
	return correct, nil
}

// finalizeAttempt is the only place Attempts grows.
func finalizeAttempt(sess *models.Session, maxAttempts int, now time.Time) (models.AttemptRecord, []models.WrongAnswer, error) {
	a := sess.Active
	if a == nil {
		return models.AttemptRecord{}, nil, ErrNoActiveAttempt
	}
	if sess.Phase(a.BankID, maxAttempts) != models.PhaseFinished {
		return models.AttemptRecord{}, nil, ErrAttemptInProgress
	}

	total := len(a.Questions)
	sess.Attempts[a.BankID]++
	record := models.AttemptRecord{
		Attempt:    sess.Attempts[a.BankID],
		Score:      a.Score,
		Total:      total,
		Percentage: Percentage(a.Score, total),
		WrongCount: len(a.Wrong),
		Timestamp:  now,
		BankID:     a.BankID,
	}
	sess.History[a.BankID] = append(sess.History[a.BankID], record)

	wrong := a.Wrong
	if wrong == nil {
		wrong = []models.WrongAnswer{}
	}
	sess.Active = nil
	return record, wrong, nil
}

// resetBank clears one bank's record. The active attempt is left alone,
// even on bankID; it finalizes against the reset counter.
func resetBank(sess *models.Session, bankID string) {
	if _, ok := sess.Attempts[bankID]; ok {
		sess.Attempts[bankID] = 0
	}
	if _, ok := sess.WrongAnswers[bankID]; ok {
		sess.WrongAnswers[bankID] = []models.WrongAnswer{}
	}
	if _, ok := sess.History[bankID]; ok {
		sess.History[bankID] = []models.AttemptRecord{}
	}
}

// ── Aggregates ──────────────────────────────────────────

// summarize folds a bank's history and wrong-answer log. It does not touch
// the session.
func summarize(history []models.AttemptRecord, wrong []models.WrongAnswer) (totalQuestions, totalCorrect int, overall float64, areas []models.ProblemArea) {
	for _, h := range history {
		totalQuestions += h.Total
		totalCorrect += h.Score
	}
	overall = Percentage(totalCorrect, totalQuestions)

	byNumber := map[int]int{}
	areas = []models.ProblemArea{}
	for _, w := range wrong {
		i, ok := byNumber[w.QuestionNumber]
		if !ok {
			i = len(areas)
			byNumber[w.QuestionNumber] = i
			areas = append(areas, models.ProblemArea{
				QuestionNumber: w.QuestionNumber,
				QuestionText:   w.QuestionText,
				CorrectAnswer:  w.CorrectAnswer,
			})
		}
		areas[i].Misses++
		areas[i].Records = append(areas[i].Records, w)
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].QuestionNumber < areas[j].QuestionNumber
	})
	return totalQuestions, totalCorrect, overall, areas
}

func remaining(used, limit int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
