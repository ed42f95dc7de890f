package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/internal/api/handlers"
	"github.com/donaldgifford/print-price-matrix/pkg/assist"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

type staticUsage []assist.ProviderUsage

func (s staticUsage) Usage() []assist.ProviderUsage { return s }

func getSystemState(t *testing.T, h *handlers.SystemStateHandler) handlers.SystemState {
	t.Helper()

	_, api := humatest.New(t)
	handlers.RegisterSystemStateRoutes(api, h)

	resp := api.Get("/api/v1/system/state")
	require.Equal(t, http.StatusOK, resp.Code)

	var st handlers.SystemState
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &st))
	return st
}

func TestGetSystemState_Idle(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, newGatedPricer(true))
	st := getSystemState(t, handlers.NewSystemStateHandler(m, nil, false))

	assert.False(t, st.JobActive)
	assert.Nil(t, st.CurrentJob)
	assert.False(t, st.HistoryEnabled)
	assert.False(t, st.AssistEnabled)
	assert.Empty(t, st.AssistProviders)
}

func TestGetSystemState_RunningJobAndAssist(t *testing.T) {
	t.Parallel()

	pricer := newGatedPricer(false)
	m := newTestManager(t, pricer)

	_, api := humatest.New(t)
	handlers.RegisterExtractionRoutes(api, handlers.NewExtractionHandler(m))
	resp := api.Post("/api/v1/extractions", startBody())
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	usage := staticUsage{{Name: "primary", Requests: 4, Errors: 1}, {Name: "backup", Exhausted: true}}
	st := getSystemState(t, handlers.NewSystemStateHandler(m, usage, true))

	assert.True(t, st.JobActive)
	require.NotNil(t, st.CurrentJob)
	assert.Equal(t, "Business Cards", st.CurrentJob.ProductName)
	assert.True(t, st.HistoryEnabled)
	assert.True(t, st.AssistEnabled)
	require.Len(t, st.AssistProviders, 2)
	assert.True(t, st.AssistProviders[1].Exhausted)

	close(pricer.release)
	job := waitCurrent(t, m)
	st = getSystemState(t, handlers.NewSystemStateHandler(m, usage, true))
	assert.False(t, st.JobActive)
	assert.Equal(t, domain.JobCompleted, st.CurrentJob.State)
	assert.Equal(t, job.ID, st.CurrentJob.JobID)
}
