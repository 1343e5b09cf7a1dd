package bank

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "quiz1_questions.json", `{
		"title": "Unit Testing",
		"total_questions": 2,
		"questions": [
			{"question_number": 1, "question_text": "Q1", "options": ["a. yes", "b. no"], "correct_answer": "a. yes", "has_image": false},
			{"question_number": 2, "question_text": "Q2", "options": [], "correct_answer": "42", "has_image": true, "image_src": "images\\fig2.png", "image_alt": "figure"}
		]
	}`)
	writeFile(t, dir, "quiz2_questions.json", `{"title": "broken", "questions": [`)
	writeFile(t, dir, "quiz3_questions.json", `{"title": "empty", "questions": []}`)
	writeFile(t, dir, "quiz4_questions.json", `{"questions": [
		{"question_number": 1, "question_text": "Q1", "correct_answer": "x"},
		{"question_number": 1, "question_text": "Q1 again", "correct_answer": "y"}
	]}`)
	writeFile(t, dir, "quiz5_questions.json", `{"title": "no questions key"}`)

	r := Load(dir, []string{"quiz1", "quiz2", "quiz3", "quiz4", "quiz5", "quiz6"}, nil)

	avail := r.ListAvailable()
	if len(avail) != 1 || avail[0].ID != "quiz1" {
		t.Fatalf("ListAvailable() = %+v, want only quiz1", avail)
	}
	if avail[0].Title != "Unit Testing" || avail[0].TotalQuestions != 2 {
		t.Errorf("quiz1 listing = %+v", avail[0])
	}

	if !r.VerifyAnswer("quiz1", 2, " 42 ") {
		t.Error("VerifyAnswer(quiz1, 2, \" 42 \") = false, want true")
	}

	d := r.Diagnostics()
	if !d.BasePathExists {
		t.Error("BasePathExists = false, want true")
	}
	if len(d.LoadedQuizzes) != 1 {
		t.Errorf("LoadedQuizzes = %v, want [quiz1]", d.LoadedQuizzes)
	}
	skipped := map[string]bool{}
	for _, s := range d.Skipped {
		skipped[s.ID] = true
		if s.Reason == "" {
			t.Errorf("skipped %s without a reason", s.ID)
		}
	}
	for _, id := range []string{"quiz2", "quiz3", "quiz4", "quiz5", "quiz6"} {
		if !skipped[id] {
			t.Errorf("%s not reported as skipped", id)
		}
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	r := Load(filepath.Join(t.TempDir(), "nope"), []string{"quiz1"}, nil)

	if n := len(r.ListAvailable()); n != 0 {
		t.Errorf("ListAvailable() returned %d banks, want 0", n)
	}
	if r.Diagnostics().BasePathExists {
		t.Error("BasePathExists = true, want false")
	}
	if got := r.SampleQuestions("quiz1", 10); len(got) != 0 {
		t.Errorf("SampleQuestions on empty repository returned %d", len(got))
	}
}
