// Package chat runs user requests against the model API behind the quota gate.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/internal/metrics"
	"github.com/BatmanBruc/arima-bot/internal/modelstatus"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

var (
	ErrNoModel          = errors.New("model is not selected")
	ErrModelNotAllowed  = errors.New("model is not available on this plan")
	ErrModelUnavailable = errors.New("model is temporarily unavailable")
	ErrPaidOnly         = errors.New("feature requires a paid plan")
)

type API interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (string, error)
	GenerateImage(ctx context.Context, req llm.ImageRequest) (string, error)
}

type UserSettings interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	SetLastModel(ctx context.Context, userID int64, model string) error
	SetSystemPrompt(ctx context.Context, userID int64, prompt *string) error
	SetTemperature(ctx context.Context, userID int64, temperature *float64) error
}

type Catalog interface {
	ModelAllowed(level types.Level, model string) bool
}

type Config struct {
	SystemPrompt      string
	Temperature       float64
	HistoryMaxLen     int
	ImageModel        string
	ImageSize         string
	DefaultGroupModel string
}

type Service struct {
	gate    *access.Gate
	api     API
	users   UserSettings
	catalog Catalog
	status  *modelstatus.Cache
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

func NewService(gate *access.Gate, api API, users UserSettings, catalog Catalog, status *modelstatus.Cache, cfg Config, log *slog.Logger) *Service {
	if cfg.HistoryMaxLen <= 0 {
		cfg.HistoryMaxLen = 10
	}
	return &Service{
		gate:    gate,
		api:     api,
		users:   users,
		catalog: catalog,
		status:  status,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

type Reply struct {
	Text     string
	Model    string
	Elapsed  time.Duration
	History  []types.ChatMessage
	Decision access.Decision
	// DefaultModel is set when a group request fell back to the default model.
	DefaultModel bool
}

// Settings are the effective prompt and temperature of a user.
type Settings struct {
	SystemPrompt string
	Temperature  float64
	Custom       bool
}

func (s *Service) Settings(ctx context.Context, userID int64) (Settings, error) {
	st := Settings{SystemPrompt: s.cfg.SystemPrompt, Temperature: s.cfg.Temperature}
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if u.SystemPrompt != nil {
		st.SystemPrompt = *u.SystemPrompt
		st.Custom = true
	}
	if u.Temperature != nil {
		st.Temperature = *u.Temperature
		st.Custom = true
	}
	return st, nil
}

func (s *Service) UpdateSystemPrompt(ctx context.Context, userID int64, input string) (*string, error) {
	prompt, err := ParseSystemPrompt(input)
	if err != nil {
		return nil, err
	}
	return prompt, s.users.SetSystemPrompt(ctx, userID, prompt)
}

func (s *Service) UpdateTemperature(ctx context.Context, userID int64, input string) (*float64, error) {
	temp, err := ParseTemperature(input)
	if err != nil {
		return nil, err
	}
	return temp, s.users.SetTemperature(ctx, userID, temp)
}

func (s *Service) DefaultTemperature() float64 {
	return s.cfg.Temperature
}

// SelectModel checks the plan and the status cache and remembers the choice.
func (s *Service) SelectModel(ctx context.Context, userID int64, level types.Level, model string) error {
	if !s.catalog.ModelAllowed(level, model) {
		return ErrModelNotAllowed
	}
	if !s.status.Available(model) {
		return ErrModelUnavailable
	}
	return s.users.SetLastModel(ctx, userID, model)
}

// Ask sends one turn of a private conversation.
func (s *Service) Ask(ctx context.Context, userID int64, model string, history []types.ChatMessage, text string) (Reply, error) {
	if strings.TrimSpace(model) == "" {
		return Reply{}, ErrNoModel
	}
	d, err := s.gate.Check(ctx, userID)
	if err != nil {
		return Reply{Decision: d}, err
	}
	if !s.catalog.ModelAllowed(d.Level, model) {
		return Reply{Decision: d}, ErrModelNotAllowed
	}

	st, err := s.Settings(ctx, userID)
	if err != nil {
		return Reply{Decision: d}, err
	}
	msgs := BuildHistory(history, st.SystemPrompt, text, s.cfg.HistoryMaxLen)

	start := s.now()
	answer, err := s.api.ChatCompletion(ctx, llm.ChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: st.Temperature,
	})
	if err != nil {
		s.apiFailed(userID, model, err)
		return Reply{Decision: d, History: msgs}, err
	}

	s.gate.Record(ctx, userID, model)
	metrics.Requests.WithLabelValues("chat").Inc()

	msgs = append(msgs, types.ChatMessage{Role: types.RoleAssistant, Content: answer})
	return Reply{
		Text:     answer,
		Model:    model,
		Elapsed:  s.now().Sub(start),
		History:  TrimHistory(msgs, s.cfg.HistoryMaxLen),
		Decision: d,
	}, nil
}

// AskOnce serves a group request: no history, paid plans only, the user's
// last model or the default one.
func (s *Service) AskOnce(ctx context.Context, userID int64, text string) (Reply, error) {
	d, err := s.gate.Check(ctx, userID)
	if err != nil {
		return Reply{Decision: d}, err
	}
	if d.Level == types.LevelFree {
		return Reply{Decision: d}, ErrPaidOnly
	}

	model := s.cfg.DefaultGroupModel
	fallback := true
	u, err := s.users.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return Reply{Decision: d}, err
	}
	if u != nil && u.LastModel != "" {
		model, fallback = u.LastModel, false
	}

	start := s.now()
	answer, err := s.api.ChatCompletion(ctx, llm.ChatRequest{
		Model:       model,
		Messages:    []types.ChatMessage{{Role: types.RoleUser, Content: text}},
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.apiFailed(userID, model, err)
		return Reply{Decision: d, Model: model}, err
	}

	s.gate.Record(ctx, userID, model)
	metrics.Requests.WithLabelValues("group").Inc()
	return Reply{
		Text:         answer,
		Model:        model,
		Elapsed:      s.now().Sub(start),
		Decision:     d,
		DefaultModel: fallback,
	}, nil
}

// ImageAllowed tells whether the image menu may be opened at all.
func (s *Service) ImageAllowed(level types.Level) error {
	if !s.status.Available(s.cfg.ImageModel) {
		return ErrModelUnavailable
	}
	if level == types.LevelFree {
		return ErrPaidOnly
	}
	return nil
}

// Draw generates one image and returns its URL.
func (s *Service) Draw(ctx context.Context, userID int64, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	d, err := s.gate.Check(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.ImageAllowed(d.Level); err != nil {
		return "", err
	}

	url, err := s.api.GenerateImage(ctx, llm.ImageRequest{
		Model:  s.cfg.ImageModel,
		Prompt: prompt,
		Size:   s.cfg.ImageSize,
	})
	if err != nil {
		s.apiFailed(userID, s.cfg.ImageModel, err)
		return "", err
	}

	s.gate.Record(ctx, userID, s.cfg.ImageModel)
	metrics.Requests.WithLabelValues("image").Inc()
	return url, nil
}

func (s *Service) ImageModel() string {
	return s.cfg.ImageModel
}

func (s *Service) GroupModel() string {
	return s.cfg.DefaultGroupModel
}

func (s *Service) apiFailed(userID int64, model string, err error) {
	metrics.LLMErrors.WithLabelValues(string(llm.KindOf(err))).Inc()
	s.log.Warn("model request failed",
		slog.Int64("user_id", userID),
		slog.String("model", model),
		sl.Err(err),
	)
}

// FormatElapsed renders seconds with two decimals.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Seconds())
}
