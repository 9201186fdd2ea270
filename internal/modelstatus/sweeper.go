package modelstatus

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/types"
)

const (
	testPrompt      = "Test"
	testMaxTokens   = 10
	testTemperature = 0.7
)

type API interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (string, error)
	GenerateImage(ctx context.Context, req llm.ImageRequest) (string, error)
}

type SweeperConfig struct {
	Models      []string
	ImageModel  string
	ImageSize   string
	Timeout     time.Duration
	Concurrency int
}

// Sweeper sends a tiny request to every model and stores the outcome.
type Sweeper struct {
	api   API
	cache *Cache
	cfg   SweeperConfig
	log   *slog.Logger
}

func NewSweeper(api API, cache *Cache, cfg SweeperConfig, log *slog.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sweeper{api: api, cache: cache, cfg: cfg, log: log}
}

// Run tests chat models first, then the image model when one is configured.
// A failing model never stops the sweep.
func (s *Sweeper) Run(ctx context.Context) []Result {
	results := make([]Result, len(s.cfg.Models), len(s.cfg.Models)+1)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, model := range s.cfg.Models {
		g.Go(func() error {
			results[i] = s.testChat(ctx, model)
			return nil
		})
	}
	var image *Result
	if s.cfg.ImageModel != "" {
		image = &Result{}
		g.Go(func() error {
			*image = s.testImage(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if image != nil {
		results = append(results, *image)
	}
	s.cache.Replace(results)

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	s.log.Info("model sweep finished", slog.Int("total", len(results)), slog.Int("failed", failed))
	return results
}

func (s *Sweeper) testChat(ctx context.Context, model string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	_, err := s.api.ChatCompletion(ctx, llm.ChatRequest{
		Model:       model,
		Messages:    []types.ChatMessage{{Role: types.RoleUser, Content: testPrompt}},
		Temperature: testTemperature,
		MaxTokens:   testMaxTokens,
	})
	return result(model, err)
}

func (s *Sweeper) testImage(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	_, err := s.api.GenerateImage(ctx, llm.ImageRequest{
		Model:  s.cfg.ImageModel,
		Prompt: testPrompt,
		Size:   s.cfg.ImageSize,
	})
	return result(s.cfg.ImageModel, err)
}

func result(model string, err error) Result {
	if err != nil {
		return Result{Model: model, Status: llm.Display(err)}
	}
	return Result{Model: model, OK: true, Status: "OK"}
}
