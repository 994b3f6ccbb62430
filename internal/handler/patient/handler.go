package patient

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/uroflux/intake-api/internal/handler"
	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type Service interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]*model.Patient, error)
}

type Instructor interface {
	SendInstructions(ctx context.Context, patientID uuid.UUID) error
}

// Handler exposes patient registration and lookup. Errors are attached to the
// context and rendered by the error middleware.
type Handler struct {
	service    Service
	instructor Instructor
}

func NewHandler(service Service, instructor Instructor) *Handler {
	return &Handler{service: service, instructor: instructor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
	}
	r.POST("/send-instructions/:id", h.SendInstructions)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			c.Error(apperror.BadRequest(verr.Error(), err))
			return
		}
		c.Error(apperror.BadRequest("invalid request body", err))
		return
	}

	patient, err := h.service.CreatePatient(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(patient))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.BadRequest("invalid patient ID", err))
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.SearchPatients(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewListResponse(len(patients), patients))
}

func (h *Handler) SendInstructions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.BadRequest("invalid patient ID", err))
		return
	}

	if err := h.instructor.SendInstructions(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"ok": true}))
}
