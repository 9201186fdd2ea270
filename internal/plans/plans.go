package plans

import (
	"sort"

	"github.com/BatmanBruc/arima-bot/types"
)

type Plan struct {
	Level       types.Level
	Key         string
	Name        string
	Price       int
	Description string
	Models      []string
}

type Provider struct {
	Index  int
	Name   string
	Models []string
}

var defaultProviders = []Provider{
	{Name: "🤖 OpenAI", Models: []string{"gpt-4.5-preview", "gpt-4.1", "o1-pro", "o4-mini", "chatgpt-4o-latest"}},
	{Name: "🔥 DeepSeek", Models: []string{"deepseek-chat-v3-0324", "deepseek-r1-0528"}},
	{Name: "🦙 Meta", Models: []string{"llama-3.1-nemotron-ultra-253b-v1"}},
	{Name: "🎯 Alibaba", Models: []string{"qwen3-235b-a22b"}},
	{Name: "💎 Google", Models: []string{"gemini-2.5-pro-exp-03-25"}},
	{Name: "🧠 Microsoft", Models: []string{"phi-4-reasoning-plus"}},
	{Name: "🚀 xAI", Models: []string{"grok-3", "grok-3-mini"}},
	{Name: "🏛️ Anthropic", Models: []string{"claude-3.7-sonnet"}},
}

var (
	freeModels = []string{"deepseek-chat-v3-0324", "gpt-4.1", "chatgpt-4o-latest"}

	standardExtra = []string{
		"llama-3.1-nemotron-ultra-253b-v1", "qwen3-235b-a22b",
		"gemini-2.5-pro-exp-03-25", "phi-4-reasoning-plus", "grok-3-mini",
	}

	premiumExtra = []string{
		"gpt-4.5-preview", "o1-pro", "o4-mini",
		"deepseek-r1-0528", "grok-3", "claude-3.7-sonnet",
	}
)

func defaultPlans() []Plan {
	standard := append(append([]string{}, freeModels...), standardExtra...)
	premium := append(append([]string{}, standard...), premiumExtra...)

	return []Plan{
		{
			Level:       types.LevelFree,
			Key:         "free",
			Name:        "Free",
			Price:       0,
			Models:      append([]string{}, freeModels...),
			Description: "<b>Базовый доступ для знакомства с ботом.</b>\nВключает несколько быстрых и популярных моделей для простых задач.",
		},
		{
			Level:       types.LevelStandard,
			Key:         "standard",
			Name:        "Standard",
			Price:       150,
			Models:      standard,
			Description: "<b>Отличный набор для ежедневных задач.</b>\nДоступ к расширенному списку умных и креативных моделей от ведущих разработчиков.",
		},
		{
			Level:       types.LevelPremium,
			Key:         "premium",
			Name:        "Premium",
			Price:       350,
			Models:      premium,
			Description: "<b>Полный арсенал для профессионалов.</b>\nАбсолютно все доступные модели, включая самые мощные, эксклюзивные и экспериментальные.",
		},
	}
}

// Catalog is the fixed table of plans, providers and daily limits.
type Catalog struct {
	plans     []Plan
	providers []Provider
	limits    map[types.Level]int
	allowed   map[types.Level]map[string]struct{}
}

func NewCatalog(limits map[types.Level]int) *Catalog {
	c := &Catalog{
		plans:     defaultPlans(),
		providers: make([]Provider, len(defaultProviders)),
		limits:    make(map[types.Level]int, len(limits)),
		allowed:   make(map[types.Level]map[string]struct{}),
	}
	for i, p := range defaultProviders {
		c.providers[i] = Provider{Index: i, Name: p.Name, Models: append([]string{}, p.Models...)}
	}
	for level, limit := range limits {
		c.limits[level] = limit
	}
	for _, p := range c.plans {
		set := make(map[string]struct{}, len(p.Models))
		for _, m := range p.Models {
			set[m] = struct{}{}
		}
		c.allowed[p.Level] = set
	}
	return c
}

// modelLevel maps the administrator override onto the richest plan.
func modelLevel(level types.Level) types.Level {
	if level >= types.LevelPremium {
		return types.LevelPremium
	}
	if level < types.LevelFree {
		return types.LevelFree
	}
	return level
}

// DailyLimit returns the per-day request limit for a level. Administrators
// are unlimited; an unknown level gets nothing.
func (c *Catalog) DailyLimit(level types.Level) (limit int, unlimited bool) {
	if level == types.LevelAdmin {
		return 0, true
	}
	return c.limits[level], false
}

func (c *Catalog) ValidLevel(level int) bool {
	for _, p := range c.plans {
		if int(p.Level) == level {
			return true
		}
	}
	return false
}

func (c *Catalog) Plan(level types.Level) (Plan, bool) {
	for _, p := range c.plans {
		if p.Level == level {
			return p, true
		}
	}
	return Plan{}, false
}

// PlanFor is like Plan but folds the administrator level onto premium.
func (c *Catalog) PlanFor(level types.Level) Plan {
	p, _ := c.Plan(modelLevel(level))
	return p
}

func (c *Catalog) Plans() []Plan {
	return c.plans
}

func (c *Catalog) PaidPlans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		if p.Price > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) LevelName(level types.Level) string {
	if level == types.LevelAdmin {
		return "Admin"
	}
	if p, ok := c.Plan(level); ok {
		return p.Name
	}
	return "Unknown"
}

func (c *Catalog) ModelAllowed(level types.Level, model string) bool {
	_, ok := c.allowed[modelLevel(level)][model]
	return ok
}

// ProvidersFor lists the providers that have at least one model available at
// the level, each trimmed to those models.
func (c *Catalog) ProvidersFor(level types.Level) []Provider {
	out := make([]Provider, 0, len(c.providers))
	for _, p := range c.providers {
		models := c.filter(level, p.Models)
		if len(models) == 0 {
			continue
		}
		out = append(out, Provider{Index: p.Index, Name: p.Name, Models: models})
	}
	return out
}

// Provider returns one provider trimmed to the models available at the level.
func (c *Catalog) Provider(level types.Level, index int) (Provider, bool) {
	if index < 0 || index >= len(c.providers) {
		return Provider{}, false
	}
	p := c.providers[index]
	return Provider{Index: p.Index, Name: p.Name, Models: c.filter(level, p.Models)}, true
}

func (c *Catalog) Providers() []Provider {
	return c.providers
}

func (c *Catalog) filter(level types.Level, models []string) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		if c.ModelAllowed(level, m) {
			out = append(out, m)
		}
	}
	return out
}

// AllModels returns every chat model once, sorted.
func (c *Catalog) AllModels() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range c.providers {
		for _, m := range p.Models {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
