package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/session"
)

// Options tunes the attempt ceiling and sample size. Zero values fall back
// to the defaults.
type Options struct {
	MaxAttempts int
	SampleSize  int
}

// Service runs the per-session quiz state machine. Every operation is a
// locked read-modify-write of one session document.
type Service struct {
	repo        Repository
	store       session.Store
	locks       *session.Locker
	log         *zap.Logger
	maxAttempts int
	sampleSize  int
	now         func() time.Time
}

func NewService(repo Repository, store session.Store, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	return &Service{
		repo:        repo,
		store:       store,
		locks:       session.NewLocker(),
		log:         log,
		maxAttempts: opts.MaxAttempts,
		sampleSize:  opts.SampleSize,
		now:         time.Now,
	}
}

func (s *Service) MaxAttempts() int { return s.maxAttempts }

// load returns the healed session for sid: a fresh one when the store has
// nothing yet, normalized maps, and a selection that points at an
// available bank.
func (s *Service) load(ctx context.Context, sid string) (*models.Session, error) {
	sess, err := s.store.Get(ctx, sid)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = models.NewSession()
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.Normalize()
	resolveSelection(sess, s.repo.ListAvailable())
	return sess, nil
}

// update runs fn against a private copy of the session. The copy is saved
// when fn succeeds; otherwise only the healed original is saved, so a
// failed transition leaves no trace.
func (s *Service) update(ctx context.Context, sid string, fn func(sess *models.Session) error) error {
	unlock := s.locks.Lock(sid)
	defer unlock()

	healed, err := s.load(ctx, sid)
	if err != nil {
		return err
	}

	work := healed.Clone()
	fnErr := fn(work)

	target := work
	if fnErr != nil {
		target = healed
	}
	if err := s.store.Save(ctx, sid, target); err != nil {
		s.log.Error("save session failed", zap.String("session", sid), zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}
	return fnErr
}

func (s *Service) title(bankID string) string {
	if b, ok := s.repo.Bank(bankID); ok {
		return b.Title
	}
	return "Quiz"
}

// ── Bank Selection ──────────────────────────────────────

// Overview describes the selected bank for the landing view.
func (s *Service) Overview(ctx context.Context, sid string) (*models.Overview, error) {
	var out *models.Overview
	err := s.update(ctx, sid, func(sess *models.Session) error {
		available := s.repo.ListAvailable()
		if len(available) == 0 {
			return ErrNoQuizData
		}
		out = s.overview(sess, available)
		return nil
	})
	return out, err
}

func (s *Service) overview(sess *models.Session, available []models.BankInfo) *models.Overview {
	used := sess.Attempts[sess.SelectedQuiz]
	return &models.Overview{
		AvailableQuizzes:  available,
		CurrentQuiz:       sess.SelectedQuiz,
		State:             sess.Phase(sess.SelectedQuiz, s.maxAttempts),
		Attempts:          used,
		MaxAttempts:       s.maxAttempts,
		AttemptsRemaining: remaining(used, s.maxAttempts),
	}
}

// SelectBank focuses bankID when it is available; unknown ids are ignored.
func (s *Service) SelectBank(ctx context.Context, sid, bankID string) (*models.Overview, error) {
	var out *models.Overview
	err := s.update(ctx, sid, func(sess *models.Session) error {
		available := s.repo.ListAvailable()
		if len(available) == 0 {
			return ErrNoQuizData
		}
		selectBank(sess, available, bankID)
		out = s.overview(sess, available)
		return nil
	})
	return out, err
}

// ── Attempt Lifecycle ───────────────────────────────────

// StartAttempt samples a fresh attempt on the selected bank and returns its
// first question. An attempt already in progress is replaced.
func (s *Service) StartAttempt(ctx context.Context, sid string) (*models.QuestionView, error) {
	var out *models.QuestionView
	err := s.update(ctx, sid, func(sess *models.Session) error {
		if err := startAttempt(sess, s.repo, s.maxAttempts, s.sampleSize, s.now()); err != nil {
			return err
		}
		out = s.questionView(sess.Active)
		s.log.Debug("attempt started",
			zap.String("session", sid),
			zap.String("quiz_id", sess.Active.BankID),
			zap.Int("questions", len(sess.Active.Questions)))
		return nil
	})
	return out, err
}

func (s *Service) CurrentQuestion(ctx context.Context, sid string) (*models.QuestionView, error) {
	var out *models.QuestionView
	err := s.update(ctx, sid, func(sess *models.Session) error {
		if _, err := currentQuestion(sess, s.maxAttempts); err != nil {
			return err
		}
		out = s.questionView(sess.Active)
		return nil
	})
	return out, err
}

func (s *Service) questionView(a *models.ActiveAttempt) *models.QuestionView {
	q := a.Questions[a.Index]
	return &models.QuestionView{
		QuizID:    a.BankID,
		QuizTitle: s.title(a.BankID),
		Number:    q.Number,
		Text:      q.Text,
		Options:   q.Options,
		HasImage:  q.HasImage,
		ImageURL:  q.ImageURL(),
		ImageAlt:  q.ImageAlt,
		Position:  a.Index + 1,
		Total:     len(a.Questions),
	}
}

// SubmitAnswer scores the current question and advances. Retrying a submit
// whose response was lost scores the next question instead.
func (s *Service) SubmitAnswer(ctx context.Context, sid, answer string) (*models.AnswerReceipt, error) {
	var out *models.AnswerReceipt
	err := s.update(ctx, sid, func(sess *models.Session) error {
		correct, err := submitAnswer(sess, s.repo, s.maxAttempts, answer, s.now())
		if err != nil {
			return err
		}
		a := sess.Active
		out = &models.AnswerReceipt{
			Answered: a.Index,
			Total:    len(a.Questions),
			Finished: a.Index >= len(a.Questions),
		}
		s.log.Debug("answer submitted",
			zap.String("session", sid),
			zap.String("quiz_id", a.BankID),
			zap.Int("answered", a.Index),
			zap.Bool("correct", correct))
		return nil
	})
	return out, err
}

// FinalizeAttempt records a finished attempt in the history and clears it.
func (s *Service) FinalizeAttempt(ctx context.Context, sid string) (*models.AttemptResult, error) {
	var out *models.AttemptResult
	err := s.update(ctx, sid, func(sess *models.Session) error {
		record, wrong, err := finalizeAttempt(sess, s.maxAttempts, s.now())
		if err != nil {
			return err
		}
		out = &models.AttemptResult{
			QuizID:            record.BankID,
			QuizTitle:         s.title(record.BankID),
			Score:             record.Score,
			Total:             record.Total,
			Percentage:        record.Percentage,
			WrongAnswers:      wrong,
			Attempt:           record.Attempt,
			MaxAttempts:       s.maxAttempts,
			AttemptsRemaining: remaining(record.Attempt, s.maxAttempts),
		}
		s.log.Info("attempt finalized",
			zap.String("session", sid),
			zap.String("quiz_id", record.BankID),
			zap.Int("attempt", record.Attempt),
			zap.Int("score", record.Score),
			zap.Int("total", record.Total))
		return nil
	})
	return out, err
}

// ── Reset ───────────────────────────────────────────────

// ResetBank clears the record of bankID, or of the selected bank when
// bankID is empty. The selection and any attempt in progress are kept.
func (s *Service) ResetBank(ctx context.Context, sid, bankID string) error {
	return s.update(ctx, sid, func(sess *models.Session) error {
		if bankID == "" {
			bankID = sess.SelectedQuiz
		}
		resetBank(sess, bankID)
		return nil
	})
}

// ResetAll discards the whole session.
func (s *Service) ResetAll(ctx context.Context, sid string) error {
	unlock := s.locks.Lock(sid)
	defer unlock()

	if err := s.store.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ── Review ──────────────────────────────────────────────

// CompletionSummary aggregates every attempt on bankID (the selected bank
// when empty) and groups its wrong answers by question.
func (s *Service) CompletionSummary(ctx context.Context, sid, bankID string) (*models.CompletionSummary, error) {
	var out *models.CompletionSummary
	err := s.update(ctx, sid, func(sess *models.Session) error {
		if bankID == "" {
			bankID = sess.SelectedQuiz
		}
		history := nonNilHistory(sess.History[bankID])
		wrong := nonNilWrong(sess.WrongAnswers[bankID])
		totalQuestions, totalCorrect, overall, areas := summarize(history, wrong)
		out = &models.CompletionSummary{
			QuizID:            bankID,
			QuizTitle:         s.title(bankID),
			History:           history,
			WrongAnswers:      wrong,
			ProblemAreas:      areas,
			TotalQuestions:    totalQuestions,
			TotalCorrect:      totalCorrect,
			OverallPercentage: overall,
			Attempts:          sess.Attempts[bankID],
			MaxAttempts:       s.maxAttempts,
		}
		return nil
	})
	return out, err
}

func (s *Service) WrongAnswers(ctx context.Context, sid string) (*models.WrongAnswerLog, error) {
	var out *models.WrongAnswerLog
	err := s.update(ctx, sid, func(sess *models.Session) error {
		out = &models.WrongAnswerLog{
			QuizID:           sess.SelectedQuiz,
			QuizTitle:        s.title(sess.SelectedQuiz),
			WrongAnswers:     nonNilWrong(sess.WrongAnswers[sess.SelectedQuiz]),
			AvailableQuizzes: s.repo.ListAvailable(),
		}
		return nil
	})
	return out, err
}

func (s *Service) History(ctx context.Context, sid string) (*models.HistoryView, error) {
	var out *models.HistoryView
	err := s.update(ctx, sid, func(sess *models.Session) error {
		out = &models.HistoryView{
			QuizID:           sess.SelectedQuiz,
			QuizTitle:        s.title(sess.SelectedQuiz),
			History:          nonNilHistory(sess.History[sess.SelectedQuiz]),
			AvailableQuizzes: s.repo.ListAvailable(),
		}
		return nil
	})
	return out, err
}

func (s *Service) Stats(ctx context.Context, sid string) (*models.Stats, error) {
	var out *models.Stats
	err := s.update(ctx, sid, func(sess *models.Session) error {
		current := sess.SelectedQuiz
		out = &models.Stats{
			CurrentQuiz:       current,
			Attempts:          sess.Attempts[current],
			WrongAnswersCount: len(sess.WrongAnswers[current]),
			QuizHistory:       nonNilHistory(sess.History[current]),
			AllAttempts:       sess.Attempts,
			AvailableQuizzes:  s.repo.ListAvailable(),
		}
		return nil
	})
	return out, err
}

func nonNilHistory(h []models.AttemptRecord) []models.AttemptRecord {
	if h == nil {
		return []models.AttemptRecord{}
	}
	return h
}

func nonNilWrong(w []models.WrongAnswer) []models.WrongAnswer {
	if w == nil {
		return []models.WrongAnswer{}
	}
	return w
}
