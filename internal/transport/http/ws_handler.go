package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	CategoryID string `json:"categoryId"`
}

type answerPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	OptionIndex   *int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type joinedPayload struct {
	SessionID  string                `json:"sessionId"`
	PlayerID   string                `json:"playerId"`
	Categories []domain.CategoryInfo `json:"categories"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{
		Message:   err.Error(),
		Retryable: errors.Is(err, domain.ErrSourceUnavailable),
	}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// Each connection drives one session; the session is forgotten when it closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	h.service.Open(sessionID, playerID)
	categories, err := h.service.Categories(ctx)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		h.service.Leave(sessionID)
		return
	}

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Leave(sessionID)
	defer cancel()

	log := h.log.With(zap.String("session", sessionID), zap.String("player", playerID))

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var starts sync.WaitGroup

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit(outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		SessionID:  sessionID,
		PlayerID:   playerID,
		Categories: categories,
	}})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: "state", Payload: view})
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.CategoryID == "" {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid start payload"}})
				continue
			}
			// Loading runs off the read loop so reset can interrupt it.
			starts.Add(1)
			go func() {
				defer starts.Done()
				if _, err := h.service.Start(ctx, sessionID, payload.CategoryID); err != nil {
					log.Info("start failed", zap.String("category", payload.CategoryID), zap.Error(err))
					emit(errorMessage(err))
				}
			}()
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.OptionIndex == nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			result, _, err := h.service.SubmitAnswer(ctx, sessionID, payload.QuestionIndex, *payload.OptionIndex)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			if result != nil {
				emit(outboundMessage[any]{Type: "answerResult", Payload: result})
			}
		case "reset":
			if _, err := h.service.Reset(sessionID); err != nil {
				emit(errorMessage(err))
			}
		case "restart":
			starts.Add(1)
			go func() {
				defer starts.Done()
				if _, err := h.service.Restart(ctx, sessionID); err != nil {
					emit(errorMessage(err))
				}
			}()
		case "export":
			export, err := h.service.Export(sessionID)
			if err != nil {
				emit(errorMessage(err))
				continue
			}
			emit(outboundMessage[any]{Type: "export", Payload: export})
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	cancelCtx()
	starts.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}
