package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

var slotPattern = regexp.MustCompile(`^attr[0-9]+$`)

// Advisor turns provider output into validated slot mappings and caches them
// per product and option set.
type Advisor struct {
	gen   Generator
	cache *lru.Cache[string, domain.AttributeMapping]
	onHit func()
	log   *slog.Logger
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithCacheHitHook registers a callback invoked on every cache hit.
func WithCacheHitHook(fn func()) AdvisorOption {
	return func(a *Advisor) {
		a.onHit = fn
	}
}

// WithAdvisorLogger sets the logger.
func WithAdvisorLogger(l *slog.Logger) AdvisorOption {
	return func(a *Advisor) {
		a.log = l
	}
}

// NewAdvisor creates an Advisor backed by gen with an LRU of cacheSize
// entries.
func NewAdvisor(gen Generator, cacheSize int, opts ...AdvisorOption) (*Advisor, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, domain.AttributeMapping](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating suggestion cache: %w", err)
	}

	a := &Advisor{
		gen:   gen,
		cache: cache,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Usage reports per-provider counters when the generator tracks them.
func (a *Advisor) Usage() []ProviderUsage {
	if u, ok := a.gen.(interface{ Usage() []ProviderUsage }); ok {
		return u.Usage()
	}
	return nil
}

type mappingResponse struct {
	Mappings map[string]string `json:"mappings"`
}

// SuggestMappings asks the provider ring for slots for the given option
// names. Suggestions for unknown options, malformed slots, and duplicate
// slots are dropped.
func (a *Advisor) SuggestMappings(ctx context.Context, productName string, options []string) (domain.AttributeMapping, error) {
	if len(options) == 0 {
		return domain.AttributeMapping{}, nil
	}

	key := cacheKey(productName, options)
	if m, ok := a.cache.Get(key); ok {
		if a.onHit != nil {
			a.onHit()
		}
		return clone(m), nil
	}

	prompt, err := MappingPrompt(productName, options)
	if err != nil {
		return nil, err
	}

	out, err := a.gen.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		SystemMsg:   mappingSystemMsg,
		Format:      FormatJSON,
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("suggesting mappings: %w", err)
	}

	var resp mappingResponse
	if err := json.Unmarshal([]byte(cleanJSONBlock(out)), &resp); err != nil {
		return nil, fmt.Errorf("parsing mapping suggestion: %w", err)
	}

	m := a.filter(resp.Mappings, options)
	a.cache.Add(key, m)
	return clone(m), nil
}

func (a *Advisor) filter(raw map[string]string, options []string) domain.AttributeMapping {
	m := make(domain.AttributeMapping, len(raw))
	used := make(map[domain.SlotID]string, len(raw))

	// Walk options in caller order so duplicate-slot resolution is stable.
	for _, name := range options {
		slot, ok := raw[name]
		if !ok {
			continue
		}
		slot = strings.TrimSpace(strings.ToLower(slot))
		if !slotPattern.MatchString(slot) {
			a.log.Debug("dropping malformed slot suggestion", "option", name, "slot", slot)
			continue
		}
		if prev, dup := used[domain.SlotID(slot)]; dup {
			a.log.Debug("dropping duplicate slot suggestion", "option", name, "slot", slot, "kept", prev)
			continue
		}
		used[domain.SlotID(slot)] = name
		m[name] = domain.SlotID(slot)
	}
	return m
}

func cacheKey(productName string, options []string) string {
	sorted := slices.Clone(options)
	slices.Sort(sorted)
	return productName + "\x00" + strings.Join(sorted, "\x00")
}

func clone(m domain.AttributeMapping) domain.AttributeMapping {
	out := make(domain.AttributeMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
