package assist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

type stubGenerator struct {
	mu    sync.Mutex
	out   string
	err   error
	calls int
	last  GenerateRequest
}

func (s *stubGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	return s.out, s.err
}

func TestAdvisor_SuggestMappings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		out     string
		err     error
		options []string
		want    domain.AttributeMapping
		wantErr string
	}{
		{
			name:    "valid suggestions",
			out:     `{"mappings": {"Shape": "attr9", "Corners": "ATTR10"}}`,
			options: []string{"Shape", "Corners"},
			want:    domain.AttributeMapping{"Shape": "attr9", "Corners": "attr10"},
		},
		{
			name:    "code fenced json",
			out:     "```json\n{\"mappings\": {\"Shape\": \"attr9\"}}\n```",
			options: []string{"Shape"},
			want:    domain.AttributeMapping{"Shape": "attr9"},
		},
		{
			name:    "unknown option and malformed slot dropped",
			out:     `{"mappings": {"Shape": "slot9", "Ghost": "attr2", "Corners": "attr10"}}`,
			options: []string{"Shape", "Corners"},
			want:    domain.AttributeMapping{"Corners": "attr10"},
		},
		{
			name:    "duplicate slot keeps first option in caller order",
			out:     `{"mappings": {"Corners": "attr9", "Shape": "attr9"}}`,
			options: []string{"Shape", "Corners"},
			want:    domain.AttributeMapping{"Shape": "attr9"},
		},
		{
			name:    "not json",
			out:     `Shape is attr9`,
			options: []string{"Shape"},
			wantErr: "parsing mapping suggestion",
		},
		{
			name:    "generator error",
			err:     ErrAllProvidersExhausted,
			options: []string{"Shape"},
			wantErr: "all providers exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &stubGenerator{out: tt.out, err: tt.err}
			a, err := NewAdvisor(gen, 8)
			require.NoError(t, err)

			got, err := a.SuggestMappings(context.Background(), "Stickers", tt.options)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, FormatJSON, gen.last.Format)
			assert.Contains(t, gen.last.Prompt, "Stickers")
		})
	}
}

func TestAdvisor_Cache(t *testing.T) {
	t.Parallel()

	hits := 0
	gen := &stubGenerator{out: `{"mappings": {"Shape": "attr9"}}`}
	a, err := NewAdvisor(gen, 4, WithCacheHitHook(func() { hits++ }))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := a.SuggestMappings(ctx, "Stickers", []string{"Shape", "Corners"})
	require.NoError(t, err)

	// Same option set in a different order hits the cache.
	second, err := a.SuggestMappings(ctx, "Stickers", []string{"Corners", "Shape"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, hits)

	// Callers may mutate the returned map without poisoning the cache.
	second["Shape"] = "attr1"
	third, err := a.SuggestMappings(ctx, "Stickers", []string{"Shape", "Corners"})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotID("attr9"), third["Shape"])

	_, err = a.SuggestMappings(ctx, "Labels", []string{"Shape", "Corners"})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
}

func TestAdvisor_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("down")}
	a, err := NewAdvisor(gen, 4)
	require.NoError(t, err)

	for range 2 {
		_, err := a.SuggestMappings(context.Background(), "Stickers", []string{"Shape"})
		require.Error(t, err)
	}
	assert.Equal(t, 2, gen.calls)
}

func TestAdvisor_NoOptions(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{}
	a, err := NewAdvisor(gen, 0)
	require.NoError(t, err)

	got, err := a.SuggestMappings(context.Background(), "Stickers", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, gen.calls)
}

func TestMappingPrompt(t *testing.T) {
	t.Parallel()

	p, err := MappingPrompt("Postcards", []string{"Shape", "Coating"})
	require.NoError(t, err)
	assert.Contains(t, p, "Product: Postcards")
	assert.Contains(t, p, "attr5: quantity")
	assert.Contains(t, p, "  - Shape")
	assert.Contains(t, p, "  - Coating")
}

func TestAdvisor_Usage(t *testing.T) {
	t.Parallel()

	plain, err := NewAdvisor(&stubGenerator{}, 1)
	require.NoError(t, err)
	assert.Nil(t, plain.Usage())

	p := &fakeProvider{name: "primary", out: `{"mappings":{"Size":"attr3"}}`}
	a, err := NewAdvisor(NewRing([]Provider{p}), 1)
	require.NoError(t, err)

	_, err = a.SuggestMappings(context.Background(), "Flyers", []string{"Size"})
	require.NoError(t, err)

	usage := a.Usage()
	require.Len(t, usage, 1)
	assert.Equal(t, "primary", usage[0].Name)
	assert.Equal(t, 1, usage[0].Requests)
}
