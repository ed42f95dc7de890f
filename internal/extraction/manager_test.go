package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	notifyMocks "github.com/donaldgifford/print-price-matrix/internal/notify/mocks"
	"github.com/donaldgifford/print-price-matrix/internal/pricing"
	storeMocks "github.com/donaldgifford/print-price-matrix/internal/store/mocks"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

type fakeAdvisor struct {
	got  []string
	resp domain.AttributeMapping
	err  error
}

func (f *fakeAdvisor) SuggestMappings(_ context.Context, _ string, options []string) (domain.AttributeMapping, error) {
	f.got = options
	return f.resp, f.err
}

type blockingAdvisor struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAdvisor) SuggestMappings(ctx context.Context, _ string, _ []string) (domain.AttributeMapping, error) {
	close(b.entered)
	select {
	case <-b.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestManager(p Pricer, opts ...ManagerOption) *Manager {
	base := []ManagerOption{WithManagerLogger(quietLogger())}
	return NewManager(newTestController(p), append(base, opts...)...)
}

func waitDone(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestManager_Start_Completes(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	dir := t.TempDir()

	ms.EXPECT().SaveRun(mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, s *domain.ExtractionSummary, results []domain.PriceResult) {
			assert.Equal(t, domain.JobCompleted, s.State)
			assert.Len(t, results, 6)
		}).
		Return(nil).Once()
	mn.EXPECT().NotifyRunComplete(mock.Anything, mock.MatchedBy(func(s *domain.ExtractionSummary) bool {
		return s.TotalExtracted == 6 && s.SuccessRate == 100
	})).Return(nil).Once()

	m := newTestManager(&fakePricer{},
		WithRecorder(ms),
		WithNotifier(mn),
		WithOutputDir(dir),
	)

	job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	waitDone(t, job)
	m.Wait()

	summary := job.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, job.ID, summary.JobID)
	assert.Equal(t, domain.JobCompleted, summary.State)
	assert.Equal(t, 6, summary.TotalCombinations)
	assert.Equal(t, 6, summary.TotalExtracted)
	assert.Zero(t, summary.ErrorCount)
	assert.InDelta(t, 100.0, summary.SuccessRate, 0.001)
	assert.Equal(t, []string{"Size", "Quantity"}, summary.OptionsUsed)
	require.NotNil(t, summary.CompletedAt)

	assert.Equal(t, filepath.Join(dir, job.ID, "Business_Cards_Raw_Prices.csv"), summary.RawPath)
	assert.FileExists(t, summary.RawPath)
	assert.FileExists(t, summary.PivotPath)

	tables := job.Tables()
	require.NotNil(t, tables)
	assert.True(t, tables.Pivoted)
	assert.Len(t, tables.Raw.Rows, 6)

	status := job.Status()
	assert.Equal(t, domain.JobCompleted, status.State)
	assert.Equal(t, "Extraction completed: 6 successful, 0 errors", status.LastMessage)
	assert.Same(t, summary, status.Summary)
}

func TestManager_Start_RejectsSecondJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	p := &fakePricer{fn: func(int, domain.SlotPayload) (*pricing.Quote, error) {
		<-release
		return &pricing.Quote{Price: "1.00"}, nil
	}}
	m := newTestManager(p)

	first, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)

	_, err = m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.ErrorIs(t, err, ErrJobActive)
	assert.Contains(t, err.Error(), first.ID)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Same(t, first, current)

	close(release)
	waitDone(t, first)

	second, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	waitDone(t, second)
}

func TestManager_Start_SetupErrors(t *testing.T) {
	t.Parallel()

	noID := testAnalysis()
	noID.ProductID = "  "

	noLabel := testAnalysis()
	noLabel.Options[0].Values = []domain.OptionValue{{ID: "1"}}

	emptyOption := testAnalysis()
	emptyOption.Options = append(emptyOption.Options, domain.Option{Name: "Shape"})

	tests := []struct {
		name       string
		analysis   *domain.ProductAnalysis
		exclusions domain.Exclusions
		wantReason string
	}{
		{name: "nil analysis", wantReason: "no product analysis"},
		{name: "missing product id", analysis: noID, wantReason: "missing product id"},
		{name: "value without label", analysis: noLabel, wantReason: "invalid product analysis"},
		{
			name:       "every option excluded",
			analysis:   testAnalysis(),
			exclusions: domain.Exclusions{Options: []string{"Size", "Quantity"}},
			wantReason: "no options remain after exclusions",
		},
		{
			name:     "every value excluded",
			analysis: testAnalysis(),
			exclusions: domain.Exclusions{Values: map[string][]string{
				"Size":     {"11", "12"},
				"Quantity": {"11", "12", "13"},
			}},
			wantReason: "no options remain after exclusions",
		},
		{name: "option with no values", analysis: emptyOption, wantReason: "zero valid combinations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &fakePricer{}
			m := newTestManager(p)

			job, err := m.Start(context.Background(), StartRequest{
				Analysis:   tt.analysis,
				Exclusions: tt.exclusions,
			})
			require.Error(t, err)
			assert.Nil(t, job)

			var setupErr *SetupError
			require.ErrorAs(t, err, &setupErr)
			assert.Equal(t, tt.wantReason, setupErr.Reason)

			_, ok := m.Current()
			assert.False(t, ok)
			assert.Empty(t, p.payloads())

			job, err = m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
			require.NoError(t, err, "failed setup must release the job slot")
			waitDone(t, job)
		})
	}
}

func TestManager_Get(t *testing.T) {
	t.Parallel()

	m := newTestManager(&fakePricer{})

	_, err := m.Get("missing")
	require.ErrorIs(t, err, ErrJobNotFound)

	job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	waitDone(t, job)

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)

	_, err = m.Get("other")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestManager_BaseContextCanceled_Aborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &fakePricer{fn: func(n int, _ domain.SlotPayload) (*pricing.Quote, error) {
		if n == 2 {
			cancel()
		}
		return &pricing.Quote{Price: "1.00", Attempts: 1}, nil
	}}

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().SaveRun(mock.Anything, mock.MatchedBy(func(s *domain.ExtractionSummary) bool {
		return s.State == domain.JobAborted
	}), mock.Anything).Return(nil).Once()

	b := NewBroadcaster(16)
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	m := newTestManager(p, WithBaseContext(ctx), WithRecorder(ms), WithBroadcaster(b))

	job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	waitDone(t, job)

	summary := job.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, domain.JobAborted, summary.State)
	assert.Equal(t, "canceled", summary.Error)
	assert.Equal(t, 1, summary.TotalExtracted, "partial results are kept")
	assert.Len(t, job.Results(), 1)
	assert.Equal(t, domain.JobAborted, job.State())

	var last domain.Progress
	for len(events) > 0 {
		last = <-events
	}
	assert.Equal(t, domain.JobAborted, last.State)
	assert.Equal(t, "Extraction aborted: 1 successful, 0 errors", last.Message)
}

func TestManager_RecorderAndNotifierFailuresAreLogged(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	ms.EXPECT().SaveRun(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	mn.EXPECT().NotifyRunComplete(mock.Anything, mock.Anything).Return(errors.New("webhook down")).Once()

	m := newTestManager(&fakePricer{}, WithRecorder(ms), WithNotifier(mn))

	job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	waitDone(t, job)

	assert.Equal(t, domain.JobCompleted, job.Summary().State)
}

func TestManager_PartialFailureSummary(t *testing.T) {
	t.Parallel()

	p := &fakePricer{fn: func(n int, _ domain.SlotPayload) (*pricing.Quote, error) {
		if n%3 == 0 {
			return nil, &pricing.RejectionError{StatusCode: 400, Message: "bad"}
		}
		return &pricing.Quote{Price: "5.00", Attempts: 1}, nil
	}}
	dir := t.TempDir()
	m := newTestManager(p, WithOutputDir(dir))

	job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.NoError(t, err)
	waitDone(t, job)

	s := job.Summary()
	assert.Equal(t, domain.JobCompleted, s.State)
	assert.Equal(t, 4, s.TotalExtracted)
	assert.Equal(t, 2, s.ErrorCount)
	assert.InDelta(t, 66.67, s.SuccessRate, 0.01)

	raw, err := os.ReadFile(s.RawPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "HTTP 400: bad")
}

func TestManager_Assist(t *testing.T) {
	t.Parallel()

	analysis := func() *domain.ProductAnalysis {
		a := testAnalysis()
		a.Options = append(a.Options,
			domain.Option{Name: "Shape", Values: []domain.OptionValue{{ID: "77", Label: "Oval"}}},
			domain.Option{Name: "Corners", Values: []domain.OptionValue{{ID: "88", Label: "Round"}}},
		)
		a.AttributeMappings = domain.AttributeMapping{"Corners": "attr12"}
		return a
	}

	t.Run("fills unresolved names only", func(t *testing.T) {
		t.Parallel()

		adv := &fakeAdvisor{resp: domain.AttributeMapping{"Shape": "attr9", "Corners": "attr99"}}
		p := &fakePricer{}
		m := newTestManager(p, WithMappingAdvisor(adv))

		job, err := m.Start(context.Background(), StartRequest{Analysis: analysis()})
		require.NoError(t, err)
		waitDone(t, job)

		assert.Equal(t, []string{"Shape"}, adv.got)
		assert.Equal(t, domain.SlotPayload{
			domain.SlotSize:     "11",
			domain.SlotQuantity: "11",
			"attr9":             "77",
			"attr12":            "88",
		}, p.payloads()[0])
	})

	t.Run("advisor failure leaves mappings unchanged", func(t *testing.T) {
		t.Parallel()

		adv := &fakeAdvisor{err: errors.New("all providers exhausted")}
		p := &fakePricer{}
		m := newTestManager(p, WithMappingAdvisor(adv))

		job, err := m.Start(context.Background(), StartRequest{Analysis: analysis()})
		require.NoError(t, err)
		waitDone(t, job)

		assert.Equal(t, domain.SlotPayload{
			domain.SlotSize:     "11",
			domain.SlotQuantity: "11",
			"attr12":            "88",
		}, p.payloads()[0])
	})

	t.Run("not called when everything resolves", func(t *testing.T) {
		t.Parallel()

		adv := &fakeAdvisor{}
		m := newTestManager(&fakePricer{}, WithMappingAdvisor(adv))

		job, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
		require.NoError(t, err)
		waitDone(t, job)

		assert.Nil(t, adv.got)
	})
}

func TestManager_Start_AssistDoesNotBlockControl(t *testing.T) {
	t.Parallel()

	adv := &blockingAdvisor{entered: make(chan struct{}), release: make(chan struct{})}
	m := newTestManager(&fakePricer{}, WithMappingAdvisor(adv))

	analysis := testAnalysis()
	analysis.Options = append(analysis.Options,
		domain.Option{Name: "Shape", Values: []domain.OptionValue{{ID: "77", Label: "Oval"}}},
	)

	type startResult struct {
		job *Job
		err error
	}
	started := make(chan startResult, 1)
	go func() {
		job, err := m.Start(context.Background(), StartRequest{Analysis: analysis})
		started <- startResult{job, err}
	}()

	select {
	case <-adv.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("advisor was not called")
	}

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		_, ok := m.Current()
		assert.False(t, ok)
		_, err := m.Get("missing")
		assert.ErrorIs(t, err, ErrJobNotFound)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Current blocked while mapping assist was in flight")
	}

	_, err := m.Start(context.Background(), StartRequest{Analysis: testAnalysis()})
	require.ErrorIs(t, err, ErrJobActive)

	close(adv.release)
	res := <-started
	require.NoError(t, res.err)
	waitDone(t, res.job)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Same(t, res.job, current)
}
