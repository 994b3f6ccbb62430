package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type IntakeService interface {
	ProcessDelivery(ctx context.Context, payload *model.WebhookPayload)
}

// Handler terminates the Meta webhook: the GET verification handshake and
// POST event deliveries.
type Handler struct {
	service     IntakeService
	verifyToken string
}

func NewHandler(service IntakeService, verifyToken string) *Handler {
	return &Handler{service: service, verifyToken: verifyToken}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
}

// Verify echoes the challenge token only when the mode/token pair matches the
// configured secret.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// Receive acknowledges every well-formed delivery with 200. Per-message
// processing failures are handled inside the intake service and never turn
// the acknowledgement into an error; only an undecodable payload is rejected.
func (h *Handler) Receive(c *gin.Context) {
	var payload model.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.Error(apperror.MalformedEvent(err))
		return
	}

	h.service.ProcessDelivery(c.Request.Context(), &payload)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
