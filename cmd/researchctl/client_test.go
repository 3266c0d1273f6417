package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/pkg/research/scheduler"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/research/v1/status":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true, "code": 200, "message": "ok",
				"data": scheduler.Status{Running: true, EngineType: "pipeline"},
			})
		default:
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false, "code": 409, "message": "scheduler already running",
			})
		}
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL+"/api", "tok", time.Second)

	var st scheduler.Status
	_, err := c.do(context.Background(), http.MethodGet, "/status", nil, &st)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, "pipeline", st.EngineType)

	_, err = c.do(context.Background(), http.MethodPost, "/start", nil, nil)
	assert.EqualError(t, err, "scheduler already running (status 409)")
}

func TestTuneRequestOnlyCarriesChangedFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(tuneCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--interval=5m", "--budget=0"}))

	req := tuneRequest(cmd)
	require.NotNil(t, req.Interval)
	assert.Equal(t, "5m", *req.Interval)
	require.NotNil(t, req.PerRootExpansionBudget)
	assert.Equal(t, 0, *req.PerRootExpansionBudget)
	assert.Nil(t, req.ResearchWorkers)
	assert.Nil(t, req.GlobalThreshold)
	assert.Equal(t, dto.UpdateResearchConfigRequest{}.MaxExpansionDepth, req.MaxExpansionDepth)
}

func TestTuneRequestDriveRates(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(tuneCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{
		"--curiosity-decay=0.01",
		"--quality-weight=0",
		"--global-threshold=-0.5",
		"--expansion-workers=4",
	}))

	req := tuneRequest(cmd)
	require.NotNil(t, req.CuriosityDecay)
	assert.Equal(t, 0.01, *req.CuriosityDecay)
	require.NotNil(t, req.QualityWeight)
	assert.Equal(t, 0.0, *req.QualityWeight)
	require.NotNil(t, req.GlobalThreshold)
	assert.Equal(t, -0.5, *req.GlobalThreshold)
	require.NotNil(t, req.ExpansionWorkers)
	assert.Equal(t, 4, *req.ExpansionWorkers)
	assert.Nil(t, req.TirednessDecay)
	assert.Nil(t, req.BoredomRate)
}
