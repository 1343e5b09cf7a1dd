package bank

import (
	"errors"
	"fmt"
	"testing"

	"github.com/quizbank/backend/internal/models"
)

func makeBank(id string, n int) models.Bank {
	b := models.Bank{ID: id, Title: "Bank " + id}
	for i := 1; i <= n; i++ {
		b.Questions = append(b.Questions, models.Question{
			Number:        i,
			Text:          fmt.Sprintf("question %d", i),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
		})
	}
	return b
}

func TestListAvailable_ExcludesEmptyBanks(t *testing.T) {
	r, err := New(makeBank("quiz1", 12), makeBank("quiz2", 0), makeBank("quiz3", 3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := r.ListAvailable()
	if len(got) != 2 {
		t.Fatalf("ListAvailable() returned %d banks, want 2", len(got))
	}
	want := []models.BankInfo{
		{ID: "quiz1", Title: "Bank quiz1", TotalQuestions: 12},
		{ID: "quiz3", Title: "Bank quiz3", TotalQuestions: 3},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListAvailable()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, ok := r.Bank("quiz2"); ok {
		t.Error("Bank(quiz2) should not be available")
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	b := makeBank("quiz1", 3)
	b.Questions[2].Number = 1
	if _, err := New(b); !errors.Is(err, ErrDuplicateQuestion) {
		t.Errorf("New with duplicate numbers: err = %v, want ErrDuplicateQuestion", err)
	}

	if _, err := New(makeBank("quiz1", 1), makeBank("quiz1", 2)); !errors.Is(err, ErrDuplicateBank) {
		t.Errorf("New with duplicate ids: err = %v, want ErrDuplicateBank", err)
	}
}

func TestNew_DefaultTitle(t *testing.T) {
	b := makeBank("quiz4", 1)
	b.Title = ""
	r, err := New(b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info, _ := r.Bank("quiz4")
	if info.Title != "Quiz Bank 4" {
		t.Errorf("title = %q, want %q", info.Title, "Quiz Bank 4")
	}
}

func TestSampleQuestions(t *testing.T) {
	r, err := New(makeBank("quiz1", 12), makeBank("small", 4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		bank  string
		count int
		want  int
	}{
		{"quiz1", 10, 10},
		{"quiz1", 12, 12},
		{"quiz1", 50, 12},
		{"small", 10, 4},
		{"quiz1", 0, 0},
		{"missing", 10, 0},
	}

	for _, tt := range tests {
		for round := 0; round < 20; round++ {
			got := r.SampleQuestions(tt.bank, tt.count)
			if len(got) != tt.want {
				t.Fatalf("SampleQuestions(%s, %d) returned %d, want %d", tt.bank, tt.count, len(got), tt.want)
			}
			seen := map[int]bool{}
			for _, q := range got {
				if seen[q.Number] {
					t.Fatalf("SampleQuestions(%s, %d) returned duplicate question %d", tt.bank, tt.count, q.Number)
				}
				seen[q.Number] = true
				if !r.VerifyAnswer(tt.bank, q.Number, q.CorrectAnswer) {
					t.Fatalf("question %d not drawn from bank %s", q.Number, tt.bank)
				}
			}
		}
	}
}

func TestSampleQuestions_DoesNotShareOptions(t *testing.T) {
	r, err := New(makeBank("quiz1", 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := r.SampleQuestions("quiz1", 1)
	got[0].Options[0] = "changed"

	again := r.SampleQuestions("quiz1", 1)
	if again[0].Options[0] != "A" {
		t.Errorf("bank option mutated through sample: %q", again[0].Options[0])
	}
}

func TestVerifyAnswer(t *testing.T) {
	b := makeBank("quiz1", 2)
	b.Questions[1].CorrectAnswer = " True "
	r, err := New(b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		bank   string
		number int
		answer string
		want   bool
	}{
		{"quiz1", 1, "A", true},
		{"quiz1", 1, " A ", true},
		{"quiz1", 1, "A\n", true},
		{"quiz1", 1, "a", false},
		{"quiz1", 1, "B", false},
		{"quiz1", 1, "", false},
		{"quiz1", 2, "True", true},
		{"quiz1", 2, "true", false},
		{"quiz1", 99, "A", false},
		{"missing", 1, "A", false},
	}

	for _, tt := range tests {
		got := r.VerifyAnswer(tt.bank, tt.number, tt.answer)
		if got != tt.want {
			t.Errorf("VerifyAnswer(%s, %d, %q) = %v, want %v", tt.bank, tt.number, tt.answer, got, tt.want)
		}
	}
}
