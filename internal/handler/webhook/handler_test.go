package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uroflux/intake-api/internal/middleware"
	"github.com/uroflux/intake-api/internal/model"
)

type recordingIntake struct {
	deliveries []*model.WebhookPayload
}

func (s *recordingIntake) ProcessDelivery(ctx context.Context, payload *model.WebhookPayload) {
	s.deliveries = append(s.deliveries, payload)
}

func setupRouter(svc IntakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	NewHandler(svc, "secret-token").RegisterRoutes(r.Group(""))
	return r
}

func TestVerify_ValidToken(t *testing.T) {
	r := setupRouter(&recordingIntake{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerify_WrongToken(t *testing.T) {
	r := setupRouter(&recordingIntake{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "12345")
}

func TestVerify_WrongMode(t *testing.T) {
	r := setupRouter(&recordingIntake{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReceive_AcknowledgesDelivery(t *testing.T) {
	svc := &recordingIntake{}
	r := setupRouter(svc)

	body := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [{
						"id": "wamid.1",
						"from": "+5511999990000",
						"type": "audio",
						"audio": {"id": "M1", "mime_type": "audio/ogg"}
					}]
				}
			}]
		}]
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.deliveries, 1)

	msgs := svc.deliveries[0].Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "audio", msgs[0].Type)
	require.NotNil(t, msgs[0].Audio)
	assert.Equal(t, "M1", msgs[0].Audio.ID)
}

func TestReceive_MalformedBody(t *testing.T) {
	svc := &recordingIntake{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed webhook event")
	assert.Empty(t, svc.deliveries)
}

func TestReceive_EmptyDelivery(t *testing.T) {
	svc := &recordingIntake{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook",
		strings.NewReader(`{"object": "whatsapp_business_account", "entry": []}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.deliveries, 1)
	assert.Empty(t, svc.deliveries[0].Messages())
}
