package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/bank"
	"pyquiz-service/internal/clock"
	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/infra/memory"
)

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	cfg := app.DefaultConfig()
	// Tickers never fire on their own; answers always get the full time bonus.
	cfg.Session.Ticker = clock.NewManual().Factory()
	questions := bank.New(nil, bank.NewCatalogSource(memory.MustDefaultCatalog(), false), time.Second, nil)
	recorder := app.NewRecorder(memory.NewKVStore(), 0, nil)
	return app.NewQuizService(memory.NewSessionStore(), questions, recorder, nil, cfg, nil)
}

func dialWS(t *testing.T, service *app.QuizService, query string) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service, nil).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T) wireMessage {
	t.Helper()
	var msg wireMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// readUntil skips messages until one of type typ satisfies match.
func readUntil[T any](conn *websocket.Conn, t *testing.T, typ string, match func(T) bool) T {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readNext(conn, t)
		if msg.Type != typ {
			continue
		}
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if match == nil || match(payload) {
			return payload
		}
	}
	t.Fatalf("no matching %s message", typ)
	var zero T
	return zero
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketRequiresPlayer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(newTestService(t), nil).ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketAnswerFlow(t *testing.T) {
	conn := dialWS(t, newTestService(t), "playerId=alice&sessionId=s1")

	joined := readUntil[joinedPayload](conn, t, "joined", nil)
	if joined.SessionID != "s1" || joined.PlayerID != "alice" || len(joined.Categories) != 6 {
		t.Fatalf("unexpected joined payload %+v", joined)
	}

	send(t, conn, "start", map[string]any{"categoryId": "algorithms"})
	started := readUntil(conn, t, "state", func(v domain.SessionView) bool {
		return v.Status == domain.StatusInProgress
	})
	if started.Question == nil || started.TotalQuestions != 5 {
		t.Fatalf("expected first question, got %+v", started)
	}

	send(t, conn, "answer", map[string]any{"questionIndex": 0, "optionIndex": 1})
	result := readUntil[domain.AnswerResult](conn, t, "answerResult", nil)
	if !result.Correct || result.Awarded != 200 || result.TotalScore != 200 {
		t.Fatalf("unexpected answer result %+v", result)
	}

	send(t, conn, "reset", nil)
	idle := readUntil(conn, t, "state", func(v domain.SessionView) bool {
		return v.Status == domain.StatusIdle
	})
	if idle.Score != 0 || idle.Question != nil {
		t.Fatalf("expected clean idle view, got %+v", idle)
	}

	send(t, conn, "ping", nil)
	errMsg := readUntil[errorPayload](conn, t, "error", nil)
	if errMsg.Message != "unsupported message type" {
		t.Fatalf("unexpected error %+v", errMsg)
	}
}

func TestWebSocketUnknownCategory(t *testing.T) {
	conn := dialWS(t, newTestService(t), "playerId=bob")

	joined := readUntil[joinedPayload](conn, t, "joined", nil)
	if joined.SessionID == "" {
		t.Fatalf("expected a generated session id")
	}

	send(t, conn, "start", map[string]any{"categoryId": "cobol"})
	errMsg := readUntil[errorPayload](conn, t, "error", nil)
	if errMsg.Retryable {
		t.Fatalf("unplayable category must not be retryable: %+v", errMsg)
	}

	send(t, conn, "answer", map[string]any{"questionIndex": 0})
	errMsg = readUntil[errorPayload](conn, t, "error", nil)
	if errMsg.Message != "invalid answer payload" {
		t.Fatalf("unexpected error %+v", errMsg)
	}
}

func TestWebSocketExportAfterCompletion(t *testing.T) {
	conn := dialWS(t, newTestService(t), "playerId=carol&sessionId=s2")
	readUntil[joinedPayload](conn, t, "joined", nil)

	send(t, conn, "export", nil)
	readUntil[errorPayload](conn, t, "error", nil)

	send(t, conn, "start", map[string]any{"categoryId": "web"})
	readUntil(conn, t, "state", func(v domain.SessionView) bool { return v.Status == domain.StatusInProgress })

	correct := []int{1, 1, 2, 2, 1}
	for i, opt := range correct {
		send(t, conn, "answer", map[string]any{"questionIndex": i, "optionIndex": opt})
		readUntil[domain.AnswerResult](conn, t, "answerResult", nil)
	}
	final := readUntil(conn, t, "state", func(v domain.SessionView) bool { return v.Recorded })
	if !final.NewRecord || final.Summary == nil || final.Summary.Accuracy != 1 {
		t.Fatalf("unexpected final view %+v", final)
	}

	send(t, conn, "export", nil)
	export := readUntil[domain.ResultExport](conn, t, "export", nil)
	if export.Accuracy != "100.0%" || export.CorrectAnswers != "5/5" || export.Stars != 3 {
		t.Fatalf("unexpected export %+v", export)
	}
}
