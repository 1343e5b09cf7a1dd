package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/models"
)

// ErrNotFound is returned by Get when a session id has no stored document yet.
var ErrNotFound = errors.New("session not found")

// Store is an opaque get/set of session documents keyed by session id.
// Writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, id string, s *models.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

func encode(s *models.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// decode never fails. Each field, and each per-bank entry of the map
// fields, is read on its own; whatever does not fit the current schema is
// dropped and Normalize fills the gaps. An unreadable document decodes to
// a fresh session.
func decode(data []byte, log *zap.Logger) *models.Session {
	s := models.NewSession()

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn("discarding unreadable session document", zap.Error(err))
		return s
	}

	var dropped []string
	if raw, ok := doc["selected_quiz"]; ok {
		if err := json.Unmarshal(raw, &s.SelectedQuiz); err != nil {
			s.SelectedQuiz = ""
			dropped = append(dropped, "selected_quiz")
		}
	}
	s.Attempts = entries[int](doc, "attempts", &dropped)
	s.WrongAnswers = entries[[]models.WrongAnswer](doc, "wrong_answers", &dropped)
	s.History = entries[[]models.AttemptRecord](doc, "quiz_history", &dropped)
	if raw, ok := doc["active_attempt"]; ok {
		var a *models.ActiveAttempt
		if err := json.Unmarshal(raw, &a); err != nil {
			dropped = append(dropped, "active_attempt")
		} else {
			s.Active = a
		}
	}

	if len(dropped) > 0 {
		sort.Strings(dropped)
		log.Warn("dropped stale session fields", zap.Strings("fields", dropped))
	}
	s.Normalize()
	return s
}

// entries reads one bank-keyed map field entry by entry.
func entries[T any](doc map[string]json.RawMessage, name string, dropped *[]string) map[string]T {
	out := map[string]T{}
	raw, ok := doc[name]
	if !ok {
		return out
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		*dropped = append(*dropped, name)
		return out
	}
	for bankID, v := range m {
		var val T
		if err := json.Unmarshal(v, &val); err != nil {
			*dropped = append(*dropped, name+"."+bankID)
			continue
		}
		out[bankID] = val
	}
	return out
}
