package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/pkg/serverutils"
	"ai-research-be/internal/service"
	"ai-research-be/pkg/research"
	"ai-research-be/pkg/research/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeResearchService struct {
	service.IResearchService
	owner     uuid.UUID
	wait      bool
	created   *dto.CreateTopicRequest
	configReq *dto.UpdateResearchConfigRequest
	startErr  error
}

func (f *fakeResearchService) Status(ctx context.Context) scheduler.Status {
	return scheduler.Status{Enabled: true, Interval: "15m0s", EngineType: scheduler.EnginePipeline}
}

func (f *fakeResearchService) Start(ctx context.Context) (scheduler.Status, error) {
	if f.startErr != nil {
		return scheduler.Status{}, fiber.NewError(fiber.StatusConflict, f.startErr.Error())
	}
	return scheduler.Status{Running: true}, nil
}

func (f *fakeResearchService) Trigger(ctx context.Context, ownerID uuid.UUID, wait bool) (*dto.TriggerResponse, error) {
	f.owner, f.wait = ownerID, wait
	return &dto.TriggerResponse{Queued: !wait}, nil
}

func (f *fakeResearchService) UpdateConfig(ctx context.Context, req *dto.UpdateResearchConfigRequest) (scheduler.Status, error) {
	f.configReq = req
	return scheduler.Status{}, nil
}

func (f *fakeResearchService) CreateTopic(ctx context.Context, ownerID uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	f.owner, f.created = ownerID, req
	return &dto.TopicResponse{Id: uuid.New(), Name: req.Name}, nil
}

type fakeEngagement struct {
	service.IEngagementService
	req *dto.RecordEngagementRequest
}

func (f *fakeEngagement) RecordEngagement(ctx context.Context, ownerID uuid.UUID, req *dto.RecordEngagementRequest) (*dto.RecordEngagementResponse, error) {
	f.req = req
	return &dto.RecordEngagementResponse{Id: uuid.New()}, nil
}

func newTestApp(t *testing.T, svc service.IResearchService, eng service.IEngagementService) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewResearchController(svc, eng).RegisterRoutes(app.Group("/api"))
	return app
}

func token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID.String()})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, app *fiber.App, method, path, body, auth string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestResearchController_RequiresToken(t *testing.T) {
	app := newTestApp(t, &fakeResearchService{}, &fakeEngagement{})
	code, _ := do(t, app, http.MethodGet, "/api/research/v1/status", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestResearchController_Status(t *testing.T) {
	app := newTestApp(t, &fakeResearchService{}, &fakeEngagement{})
	code, body := do(t, app, http.MethodGet, "/api/research/v1/status", "", token(t, uuid.New()))
	assert.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "pipeline", data["engine_type"])
}

func TestResearchController_StartConflict(t *testing.T) {
	app := newTestApp(t, &fakeResearchService{startErr: research.ErrSchedulerRunning}, &fakeEngagement{})
	code, body := do(t, app, http.MethodPost, "/api/research/v1/start", "", token(t, uuid.New()))
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, false, body["success"])
}

func TestResearchController_Trigger(t *testing.T) {
	owner := uuid.New()

	t.Run("queued", func(t *testing.T) {
		svc := &fakeResearchService{}
		app := newTestApp(t, svc, &fakeEngagement{})
		code, _ := do(t, app, http.MethodPost, "/api/research/v1/trigger", "", token(t, owner))
		assert.Equal(t, fiber.StatusAccepted, code)
		assert.Equal(t, owner, svc.owner)
		assert.False(t, svc.wait)
	})

	t.Run("wait", func(t *testing.T) {
		svc := &fakeResearchService{}
		app := newTestApp(t, svc, &fakeEngagement{})
		code, _ := do(t, app, http.MethodPost, "/api/research/v1/trigger?wait=true", "", token(t, owner))
		assert.Equal(t, fiber.StatusOK, code)
		assert.True(t, svc.wait)
	})
}

func TestResearchController_CreateTopicValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"name":"Quantum Computing"}`, fiber.StatusCreated},
		{"missing name", `{"description":"x"}`, fiber.StatusBadRequest},
		{"too short", `{"name":"q"}`, fiber.StatusBadRequest},
		{"malformed json", `{"name":`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeResearchService{}
			app := newTestApp(t, svc, &fakeEngagement{})
			code, _ := do(t, app, http.MethodPost, "/api/research/v1/topics", tt.body, token(t, uuid.New()))
			assert.Equal(t, tt.wantCode, code)
			if tt.wantCode == fiber.StatusCreated {
				require.NotNil(t, svc.created)
				assert.Equal(t, "Quantum Computing", svc.created.Name)
			} else {
				assert.Nil(t, svc.created)
			}
		})
	}
}

func TestResearchController_UpdateConfigValidation(t *testing.T) {
	svc := &fakeResearchService{}
	app := newTestApp(t, svc, &fakeEngagement{})

	code, _ := do(t, app, http.MethodPatch, "/api/research/v1/config", `{"research_workers":0}`, token(t, uuid.New()))
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Nil(t, svc.configReq)

	code, _ = do(t, app, http.MethodPatch, "/api/research/v1/config", `{"research_workers":4,"interval":"10m"}`, token(t, uuid.New()))
	assert.Equal(t, fiber.StatusOK, code)
	require.NotNil(t, svc.configReq)
	assert.Equal(t, 4, *svc.configReq.ResearchWorkers)
}

func TestResearchController_UpdateConfigThresholdBounds(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"topic threshold above one", `{"topic_threshold":1.5}`, fiber.StatusOK},
		{"negative global threshold", `{"global_threshold":-0.5}`, fiber.StatusOK},
		{"global threshold below impetus range", `{"global_threshold":-2}`, fiber.StatusBadRequest},
		{"negative topic threshold", `{"topic_threshold":-0.1}`, fiber.StatusBadRequest},
		{"drive decays", `{"curiosity_decay":0.01,"quality_weight":0.2}`, fiber.StatusOK},
		{"negative decay", `{"tiredness_decay":-1}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeResearchService{}
			app := newTestApp(t, svc, &fakeEngagement{})

			code, _ := do(t, app, http.MethodPatch, "/api/research/v1/config", tt.body, token(t, uuid.New()))
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestResearchController_RecordEngagement(t *testing.T) {
	eng := &fakeEngagement{}
	app := newTestApp(t, &fakeResearchService{}, eng)
	topic := uuid.New()

	code, _ := do(t, app, http.MethodPost, "/api/research/v1/engagement",
		`{"topic_id":"`+topic.String()+`","kind":"like"}`, token(t, uuid.New()))
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Nil(t, eng.req)

	code, _ = do(t, app, http.MethodPost, "/api/research/v1/engagement",
		`{"topic_id":"`+topic.String()+`","kind":"bookmark"}`, token(t, uuid.New()))
	assert.Equal(t, fiber.StatusCreated, code)
	require.NotNil(t, eng.req)
	assert.Equal(t, topic, eng.req.TopicId)
}
