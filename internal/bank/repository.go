package bank

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/quizbank/backend/internal/models"
)

var (
	ErrDuplicateBank     = errors.New("duplicate bank id")
	ErrDuplicateQuestion = errors.New("duplicate question number")
)

// Repository holds every quiz bank for the process lifetime. It is never
// mutated after construction, so it is safe for concurrent use.
type Repository struct {
	banks   map[string]models.Bank
	numbers map[string]map[int]int // bank id -> question number -> index
	order   []string               // available (non-empty) banks in load order
	diag    models.Diagnostics
}

// New builds a repository from already-decoded banks. Banks without
// questions are kept out of the available set.
func New(banks ...models.Bank) (*Repository, error) {
	r := &Repository{
		banks:   make(map[string]models.Bank, len(banks)),
		numbers: make(map[string]map[int]int, len(banks)),
	}
	for _, b := range banks {
		if err := r.add(b); err != nil {
			return nil, err
		}
	}
	r.diag.LoadedQuizzes = append([]string(nil), r.order...)
	r.diag.QuizDetails = r.ListAvailable()
	return r, nil
}

func (r *Repository) add(b models.Bank) error {
	if _, ok := r.banks[b.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBank, b.ID)
	}
	idx, err := indexQuestions(b)
	if err != nil {
		return err
	}
	if b.Title == "" {
		b.Title = defaultTitle(b.ID)
	}
	r.banks[b.ID] = b
	r.numbers[b.ID] = idx
	if len(b.Questions) > 0 {
		r.order = append(r.order, b.ID)
	}
	return nil
}

func indexQuestions(b models.Bank) (map[int]int, error) {
	idx := make(map[int]int, len(b.Questions))
	for i, q := range b.Questions {
		if _, dup := idx[q.Number]; dup {
			return nil, fmt.Errorf("%w: bank %s question %d", ErrDuplicateQuestion, b.ID, q.Number)
		}
		idx[q.Number] = i
	}
	return idx, nil
}

// ListAvailable returns the non-empty banks in load order.
func (r *Repository) ListAvailable() []models.BankInfo {
	out := make([]models.BankInfo, 0, len(r.order))
	for _, id := range r.order {
		b := r.banks[id]
		out = append(out, models.BankInfo{ID: id, Title: b.Title, TotalQuestions: len(b.Questions)})
	}
	return out
}

// Bank returns the listing entry of an available bank.
func (r *Repository) Bank(id string) (models.BankInfo, bool) {
	b, ok := r.banks[id]
	if !ok || len(b.Questions) == 0 {
		return models.BankInfo{}, false
	}
	return models.BankInfo{ID: id, Title: b.Title, TotalQuestions: len(b.Questions)}, true
}

// SampleQuestions draws min(count, size) distinct questions uniformly at
// random. Unknown banks yield nil.
func (r *Repository) SampleQuestions(id string, count int) []models.Question {
	b, ok := r.banks[id]
	if !ok || count <= 0 || len(b.Questions) == 0 {
		return nil
	}
	if count > len(b.Questions) {
		count = len(b.Questions)
	}

	perm := rand.Perm(len(b.Questions))
	out := make([]models.Question, count)
	for i := range out {
		q := b.Questions[perm[i]]
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// VerifyAnswer compares the trimmed answer with the trimmed correct answer.
// The comparison is case-sensitive. A miss on bank or question is false.
func (r *Repository) VerifyAnswer(id string, number int, answer string) bool {
	idx, ok := r.numbers[id]
	if !ok {
		return false
	}
	i, ok := idx[number]
	if !ok {
		return false
	}
	return strings.TrimSpace(answer) == strings.TrimSpace(r.banks[id].Questions[i].CorrectAnswer)
}

// Diagnostics reports what was loaded and what was skipped.
func (r *Repository) Diagnostics() models.Diagnostics {
	d := r.diag
	d.LoadedQuizzes = append([]string(nil), r.diag.LoadedQuizzes...)
	d.QuizDetails = append([]models.BankInfo(nil), r.diag.QuizDetails...)
	d.Skipped = append([]models.SkippedBank(nil), r.diag.Skipped...)
	return d
}

func defaultTitle(id string) string {
	if n, ok := strings.CutPrefix(id, "quiz"); ok && n != "" {
		return "Quiz Bank " + n
	}
	return id
}
