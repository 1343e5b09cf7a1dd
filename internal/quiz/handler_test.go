package quiz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/quizbank/backend/internal/bank"
	"github.com/quizbank/backend/internal/middleware"
	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/session"
)

const testSID = "handler-session"

func newTestRouter(t *testing.T, banks ...models.Bank) http.Handler {
	t.Helper()
	repo, err := bank.New(banks...)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	h := NewHandler(NewService(repo, session.NewMemoryStore(nil), nil, Options{}), repo, nil)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sid := req.Header.Get("X-Session"); sid != "" {
				req = req.WithContext(middleware.WithSessionID(req.Context(), sid))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(api)
	r.HandleFunc("/debug", h.Debug).Methods("GET")
	return r
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session", testSID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHandler_AttemptCycle(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12), makeBank("quiz2", 12))

	rec := call(t, h, "POST", "/api/v1/quizzes/select", `{"quiz_id":"quiz2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d, want 200", rec.Code)
	}
	if ov := decodeBody[models.Overview](t, rec); ov.CurrentQuiz != "quiz2" || len(ov.AvailableQuizzes) != 2 {
		t.Errorf("overview = %+v", ov)
	}

	rec = call(t, h, "POST", "/api/v1/attempts", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_answer") {
		t.Error("question view leaks the correct answer")
	}

	for i := 0; i < 10; i++ {
		rec = call(t, h, "GET", "/api/v1/attempts/current", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("current status = %d", rec.Code)
		}
		q := decodeBody[models.QuestionView](t, rec)
		body := `{"answer":"  ` + answerFor(q.Number) + `  "}`
		if rec = call(t, h, "POST", "/api/v1/attempts/current/answer", body); rec.Code != http.StatusOK {
			t.Fatalf("answer status = %d", rec.Code)
		}
	}

	rec = call(t, h, "GET", "/api/v1/attempts/current", "")
	if e := decodeBody[models.ErrorResponse](t, rec); rec.Code != http.StatusConflict || e.Next != "result" {
		t.Errorf("current after last answer = %d %+v, want 409 next=result", rec.Code, e)
	}

	rec = call(t, h, "POST", "/api/v1/attempts/current/finalize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d", rec.Code)
	}
	res := decodeBody[models.AttemptResult](t, rec)
	if res.QuizID != "quiz2" || res.Score != 10 || res.Percentage != 100 || res.AttemptsRemaining != 4 {
		t.Errorf("result = %+v", res)
	}

	rec = call(t, h, "GET", "/api/v1/complete?quiz_id=quiz2", "")
	if sum := decodeBody[models.CompletionSummary](t, rec); sum.TotalQuestions != 10 || len(sum.History) != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestHandler_SoftOutcomes(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantNext   string
	}{
		{"current without attempt", "GET", "/api/v1/attempts/current", "", http.StatusConflict, "select"},
		{"answer without attempt", "POST", "/api/v1/attempts/current/answer", `{"answer":"a"}`, http.StatusConflict, "select"},
		{"finalize without attempt", "POST", "/api/v1/attempts/current/finalize", "", http.StatusConflict, "select"},
		{"start", "POST", "/api/v1/attempts", "", http.StatusCreated, ""},
		{"early finalize", "POST", "/api/v1/attempts/current/finalize", "", http.StatusConflict, "quiz"},
		{"bad body", "POST", "/api/v1/attempts/current/answer", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantNext == "" {
				return
			}
			if e := decodeBody[models.ErrorResponse](t, rec); e.Next != tt.wantNext {
				t.Errorf("next = %q, want %q", e.Next, tt.wantNext)
			}
		})
	}
}

func TestHandler_NoBanks(t *testing.T) {
	h := newTestRouter(t)

	rec := call(t, h, "GET", "/api/v1/quizzes", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("overview status = %d, want 503", rec.Code)
	}
	rec = call(t, h, "POST", "/api/v1/attempts", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("start status = %d, want 503", rec.Code)
	}
}

func TestHandler_RequiresSession(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12))

	req := httptest.NewRequest("GET", "/api/v1/quizzes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandler_Reset(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12))

	call(t, h, "POST", "/api/v1/attempts", "")
	for i := 0; i < 10; i++ {
		call(t, h, "POST", "/api/v1/attempts/current/answer", `{"answer":"x"}`)
	}
	call(t, h, "POST", "/api/v1/attempts/current/finalize", "")

	if rec := call(t, h, "POST", "/api/v1/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	st := decodeBody[models.Stats](t, call(t, h, "GET", "/api/v1/stats", ""))
	if st.Attempts != 0 || st.WrongAnswersCount != 0 || len(st.QuizHistory) != 0 {
		t.Errorf("stats after reset = %+v", st)
	}

	call(t, h, "POST", "/api/v1/attempts", "")
	if rec := call(t, h, "POST", "/api/v1/reset-all", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset-all status = %d", rec.Code)
	}
	if rec := call(t, h, "GET", "/api/v1/attempts/current", ""); rec.Code != http.StatusConflict {
		t.Errorf("current after reset-all = %d, want 409", rec.Code)
	}
}

func TestHandler_Debug(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12), models.Bank{ID: "quiz2"})

	rec := call(t, h, "GET", "/debug", "")
	d := decodeBody[models.Diagnostics](t, rec)
	if len(d.LoadedQuizzes) != 1 || d.LoadedQuizzes[0] != "quiz1" {
		t.Errorf("loaded = %v, want [quiz1]", d.LoadedQuizzes)
	}
}

func finishAttempt(t *testing.T, h http.Handler) {
	t.Helper()
	if rec := call(t, h, "POST", "/api/v1/attempts", ""); rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	for i := 0; i < 10; i++ {
		call(t, h, "POST", "/api/v1/attempts/current/answer", `{"answer":"x"}`)
	}
	if rec := call(t, h, "POST", "/api/v1/attempts/current/finalize", ""); rec.Code != http.StatusOK {
		t.Fatalf("finalize status = %d", rec.Code)
	}
}

func TestHandler_ResetBody(t *testing.T) {
	h := newTestRouter(t, makeBank("quiz1", 12), makeBank("quiz2", 12))

	call(t, h, "POST", "/api/v1/quizzes/select", `{"quiz_id":"quiz2"}`)
	finishAttempt(t, h)
	call(t, h, "POST", "/api/v1/quizzes/select", `{"quiz_id":"quiz1"}`)
	finishAttempt(t, h)

	attempts := func() map[string]int {
		return decodeBody[models.Stats](t, call(t, h, "GET", "/api/v1/stats", "")).AllAttempts
	}

	rec := call(t, h, "POST", "/api/v1/reset", `{"quiz_id":"quiz2"`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("truncated body status = %d, want 400", rec.Code)
	}
	if got := attempts(); got["quiz1"] != 1 || got["quiz2"] != 1 {
		t.Errorf("attempts after rejected reset = %v, want both 1", got)
	}

	if rec := call(t, h, "POST", "/api/v1/reset", `{"quiz_id":"quiz2"}`); rec.Code != http.StatusOK {
		t.Fatalf("reset quiz2 status = %d", rec.Code)
	}
	if got := attempts(); got["quiz1"] != 1 || got["quiz2"] != 0 {
		t.Errorf("attempts after reset quiz2 = %v, want quiz1=1 quiz2=0", got)
	}

	if rec := call(t, h, "POST", "/api/v1/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("empty body reset status = %d", rec.Code)
	}
	if got := attempts(); got["quiz1"] != 0 {
		t.Errorf("empty body reset left quiz1 = %d, want 0", got["quiz1"])
	}
}
