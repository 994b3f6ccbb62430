package exam

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/uroflux/intake-api/internal/handler"
	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type Service interface {
	GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListExams(ctx context.Context, patientID *uuid.UUID) ([]*model.Exam, error)
	GetExamResult(ctx context.Context, examID uuid.UUID) (*model.ExamResult, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/exams")
	{
		exams.GET("", h.ListExams)
		exams.GET("/:id", h.GetExam)
		exams.GET("/:id/result", h.GetExamResult)
	}
}

func (h *Handler) ListExams(c *gin.Context) {
	var patientID *uuid.UUID
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.Error(apperror.BadRequest("invalid patient ID", err))
			return
		}
		patientID = &id
	}

	exams, err := h.service.ListExams(c.Request.Context(), patientID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewListResponse(len(exams), exams))
}

func (h *Handler) GetExam(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.BadRequest("invalid exam ID", err))
		return
	}

	exam, err := h.service.GetExam(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(exam))
}

func (h *Handler) GetExamResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(apperror.BadRequest("invalid exam ID", err))
		return
	}

	result, err := h.service.GetExamResult(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
