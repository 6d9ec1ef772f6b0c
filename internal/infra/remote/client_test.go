package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pyquiz-service/internal/bank"
	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/infra/memory"
)

func newBackend(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var updates []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.CategoryInfo{{ID: "python", Name: "Python Basics", QuestionCount: 5}})
	})
	mux.HandleFunc("GET /api/questions/{id}", func(w http.ResponseWriter, r *http.Request) {
		cat, err := memory.MustDefaultCatalog().LoadCategory(r.Context(), r.PathValue("id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Category not found"})
			return
		}
		if r.URL.Query().Get("count") != "3" {
			t.Errorf("expected count=3, got %q", r.URL.Query().Get("count"))
		}
		writeJSON(w, http.StatusOK, cat.Questions[:3])
	})
	mux.HandleFunc("POST /api/game/session", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.CategoryID != "web" || req.TotalQuestions != 5 {
			t.Errorf("unexpected create payload %+v", req)
		}
		writeJSON(w, http.StatusOK, map[string]int{"session_id": 42})
	})
	mux.HandleFunc("PUT /api/game/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		updates = append(updates, body)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Session updated successfully"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &updates
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientFetchesQuestions(t *testing.T) {
	srv, _ := newBackend(t)
	client := New(srv.URL+"/api/", time.Second)

	qs, err := client.Questions(context.Background(), "algorithms", 3)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 3 || qs[0].Validate() != nil {
		t.Fatalf("unexpected questions %+v", qs)
	}

	if _, err := client.Questions(context.Background(), "cobol", 3); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cats, err := client.Categories(context.Background())
	if err != nil || len(cats) != 1 || cats[0].QuestionCount != 5 {
		t.Fatalf("unexpected categories %+v %v", cats, err)
	}
}

func TestBankFallsBackWhenBackendIsDown(t *testing.T) {
	srv, _ := newBackend(t)
	client := New(srv.URL+"/api", time.Second)
	srv.Close()

	b := bank.New(client, bank.NewCatalogSource(memory.MustDefaultCatalog(), true), time.Second, nil)
	qs, err := b.FetchQuestions(context.Background(), "python", 10)
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("expected the 5 bundled python questions, got %d", len(qs))
	}
}

func TestReporterRoundTrip(t *testing.T) {
	srv, updates := newBackend(t)
	rep := NewReporter(New(srv.URL+"/api", time.Second))
	ctx := context.Background()

	id, err := rep.SessionStarted(ctx, "web", 5)
	if err != nil || id != "42" {
		t.Fatalf("unexpected start %q %v", id, err)
	}
	err = rep.SessionEnded(ctx, id, domain.SessionSummary{Score: 700, CorrectAnswers: 4, TotalQuestions: 5, Accuracy: 0.8, Duration: 61})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(*updates) != 1 {
		t.Fatalf("expected one update, got %d", len(*updates))
	}
	got := (*updates)[0]
	if got["score"].(float64) != 700 || got["accuracy"].(float64) != 80 || got["duration"].(float64) != 61 {
		t.Fatalf("unexpected update payload %+v", got)
	}

	if err := rep.SessionEnded(ctx, "7", domain.SessionSummary{}); err == nil {
		t.Fatalf("expected error for unknown report id")
	}
}
