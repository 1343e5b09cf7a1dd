package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/models"
)

// FileName returns the file a bank id is loaded from.
func FileName(id string) string {
	return id + "_questions.json"
}

type bankFile struct {
	Title     string             `json:"title"`
	Questions *[]models.Question `json:"questions"`
}

// Load reads one file per bank id from dir. Missing or malformed files are
// skipped and recorded in Diagnostics; Load itself never fails, and a
// repository with no available banks is a valid degraded result.
func Load(dir string, ids []string, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Repository{
		banks:   make(map[string]models.Bank, len(ids)),
		numbers: make(map[string]map[int]int, len(ids)),
	}
	r.diag.BasePath = dir
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		r.diag.BasePathExists = true
	} else {
		log.Warn("quiz data directory not found", zap.String("dir", dir))
	}

	for _, id := range ids {
		file := filepath.Join(dir, FileName(id))
		skip := func(reason string) {
			log.Warn("skipping quiz bank", zap.String("quiz_id", id), zap.String("file", file), zap.String("reason", reason))
			r.diag.Skipped = append(r.diag.Skipped, models.SkippedBank{ID: id, File: file, Reason: reason})
		}

		b, err := readBank(id, file)
		if err != nil {
			skip(err.Error())
			continue
		}
		if err := r.add(b); err != nil {
			skip(err.Error())
			continue
		}
		if len(b.Questions) == 0 {
			skip("bank has no questions")
			continue
		}
		log.Info("loaded quiz bank", zap.String("quiz_id", id), zap.Int("questions", len(b.Questions)))
	}

	r.diag.LoadedQuizzes = append([]string(nil), r.order...)
	r.diag.QuizDetails = r.ListAvailable()
	if len(r.order) == 0 {
		log.Error("no quiz banks loaded", zap.String("dir", dir))
	}
	return r
}

func readBank(id, file string) (models.Bank, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Bank{}, errors.New("file not found")
		}
		return models.Bank{}, fmt.Errorf("read file: %w", err)
	}

	var bf bankFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return models.Bank{}, fmt.Errorf("decode bank: %w", err)
	}
	if bf.Questions == nil {
		return models.Bank{}, errors.New("missing questions field")
	}

	return models.Bank{ID: id, Title: bf.Title, Questions: *bf.Questions}, nil
}
