package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fastTrackAPI/internal/stats"
	"fastTrackAPI/internal/types/coach"
)

const (
	coachHistoryWindow = 20
	coachSystemPrompt  = "You are a supportive intermittent-fasting coach. " +
		"Give short, practical answers grounded in the user's fasting history. " +
		"Never give medical advice; suggest seeing a doctor for health concerns."
)

// fallbackTips rotate daily when the model endpoint is unreachable or
// unconfigured, so the coach tab is never empty.
var fallbackTips = []string{
	"Drink plenty of water during your fast. Thirst is often mistaken for hunger.",
	"Black coffee and unsweetened tea won't break your fast and can curb appetite.",
	"Break your fast gently: start with something light before a full meal.",
	"Consistency beats intensity. A 14-hour fast you keep daily beats an occasional 24-hour one.",
	"Hunger comes in waves. Ride it out for 20 minutes and it usually passes.",
	"Plan your eating window around your social life, not against it.",
	"Light activity like a walk can make the last hours of a fast easier.",
}

type CoachService struct {
	db          *pgxpool.Pool
	fastService *FastService
	client      *http.Client
	apiURL      string
	apiKey      string
	model       string
}

func NewCoachService(db *pgxpool.Pool, fastService *FastService) *CoachService {
	model := os.Getenv("COACH_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &CoachService{
		db:          db,
		fastService: fastService,
		client:      &http.Client{Timeout: 30 * time.Second},
		apiURL:      os.Getenv("COACH_API_URL"),
		apiKey:      os.Getenv("COACH_API_KEY"),
		model:       model,
	}
}

func (s *CoachService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found for clerk_id %s: %w", clerkID, err)
	}
	return userID, nil
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens"`
	Temperature float64                 `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// Chat stores the user turn, asks the model, stores the reply. When the model
// is unreachable it returns a canned tip and skips storing an assistant turn.
func (s *CoachService) Chat(ctx context.Context, clerkID string, req *coach.ChatRequest) (*coach.ChatResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if req.Message == "" || len(req.Message) > 4000 {
		return nil, fmt.Errorf("message must be 1-4000 characters")
	}

	history, err := s.recentHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.storeMessage(ctx, userID, coach.RoleUser, req.Message); err != nil {
		return nil, err
	}

	messages := []chatCompletionMessage{{Role: string(coach.RoleSystem), Content: s.contextPrompt(ctx, userID)}}
	for _, m := range history {
		messages = append(messages, chatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatCompletionMessage{Role: string(coach.RoleUser), Content: req.Message})

	reply, err := s.complete(ctx, messages)
	if err != nil {
		log.Printf("Coach model unavailable, serving fallback: %v", err)
		return &coach.ChatResponse{Reply: s.fallbackTip(), Fallback: true}, nil
	}

	if err := s.storeMessage(ctx, userID, coach.RoleAssistant, reply); err != nil {
		return nil, err
	}
	return &coach.ChatResponse{Reply: reply}, nil
}

// DailyInsight produces one short observation about the user's recent fasting.
func (s *CoachService) DailyInsight(ctx context.Context, clerkID string) (*coach.Insight, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	prompt := s.contextPrompt(ctx, userID) +
		"\nWrite one short, encouraging insight (max 2 sentences) about this user's recent fasting."
	reply, err := s.complete(ctx, []chatCompletionMessage{{Role: string(coach.RoleSystem), Content: prompt}})
	if err != nil {
		return &coach.Insight{Text: s.fallbackTip(), GeneratedAt: time.Now(), Fallback: true}, nil
	}
	return &coach.Insight{Text: reply, GeneratedAt: time.Now()}, nil
}

func (s *CoachService) GetHistory(ctx context.Context, clerkID string) ([]*coach.Message, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.recentHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *CoachService) complete(ctx context.Context, messages []chatCompletionMessage) (string, error) {
	if s.apiURL == "" {
		return "", errors.New("coach endpoint not configured")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   400,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("coach request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("coach endpoint returned %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode coach response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("coach returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// contextPrompt folds the user's recent stats into the system prompt so the
// model can reference real numbers.
func (s *CoachService) contextPrompt(ctx context.Context, userID uuid.UUID) string {
	prompt := coachSystemPrompt

	history, err := s.fastService.LoadHistory(ctx, userID)
	if err != nil {
		log.Printf("Failed to load fasting history for coach context: %v", err)
		return prompt
	}

	now := time.Now()
	return fmt.Sprintf(
		"%s\nUser context: current streak %d days, %d completed fasts, %.1f total hours, longest fast %.1f hours.",
		prompt,
		stats.CurrentStreak(history, now),
		stats.CompletedCount(history),
		stats.TotalHours(history),
		stats.LongestFastHours(history),
	)
}

func (s *CoachService) recentHistory(ctx context.Context, userID uuid.UUID) ([]*coach.Message, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, role, content, created_at
	FROM coach_messages
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`, userID, coachHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load coach history: %w", err)
	}
	defer rows.Close()

	msgs := []*coach.Message{}
	for rows.Next() {
		m := &coach.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for the model.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *CoachService) storeMessage(ctx context.Context, userID uuid.UUID, role coach.Role, content string) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO coach_messages (id, user_id, role, content, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New(), userID, role, content)
	if err != nil {
		return fmt.Errorf("failed to store coach message: %w", err)
	}
	return nil
}

func (s *CoachService) fallbackTip() string {
	return fallbackTips[time.Now().YearDay()%len(fallbackTips)]
}
