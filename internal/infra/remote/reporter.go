package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"pyquiz-service/internal/domain"
)

type createSessionRequest struct {
	CategoryID     string `json:"category_id"`
	TotalQuestions int    `json:"total_questions"`
}

type createSessionResponse struct {
	SessionID int64 `json:"session_id"`
}

type updateSessionRequest struct {
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	Accuracy       float64 `json:"accuracy"` // percent
	Duration       int     `json:"duration"`
}

// Reporter mirrors sessions to the backend's /game/session endpoints.
type Reporter struct {
	client *Client
}

func NewReporter(client *Client) *Reporter {
	return &Reporter{client: client}
}

func (r *Reporter) SessionStarted(ctx context.Context, categoryID string, totalQuestions int) (string, error) {
	payload, err := json.Marshal(createSessionRequest{CategoryID: categoryID, TotalQuestions: totalQuestions})
	if err != nil {
		return "", err
	}
	body, status, err := r.client.do(ctx, http.MethodPost, "/game/session", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", decodeHTTPError(status, body)
	}
	var res createSessionResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return strconv.FormatInt(res.SessionID, 10), nil
}

func (r *Reporter) SessionEnded(ctx context.Context, reportID string, summary domain.SessionSummary) error {
	payload, err := json.Marshal(updateSessionRequest{
		Score:          summary.Score,
		CorrectAnswers: summary.CorrectAnswers,
		Accuracy:       summary.AccuracyPercent(),
		Duration:       summary.Duration,
	})
	if err != nil {
		return err
	}
	body, status, err := r.client.do(ctx, http.MethodPut, "/game/session/"+url.PathEscape(reportID), payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return decodeHTTPError(status, body)
	}
	return nil
}
