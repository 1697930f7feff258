package handler

import (
	"net/http"
	"strconv"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/eduvista/entrance-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuestionHandler handles question bank management for admins.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/admin/questions?category=&active=&page=&per_page=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var f repository.QuestionFilter

	if raw := c.Query("category"); raw != "" {
		cat := model.QuestionCategory(raw)
		if !cat.Valid() {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"category": "unknown category"})
			return
		}
		f.Category = &cat
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"active": "must be true or false"})
			return
		}
		f.IsActive = &active
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	questions, pagination, err := h.questionService.List(c.Request.Context(), f, page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// BulkCreateQuestions godoc
// POST /api/v1/admin/questions/bulk
// Stores all questions or none.
func (h *QuestionHandler) BulkCreateQuestions(c *gin.Context) {
	var req model.BulkCreateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.BulkCreate(c.Request.Context(), req.Questions)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"created": len(questions), "questions": questions})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// DeactivateQuestion godoc
// DELETE /api/v1/admin/questions/:id
// Soft delete: the question stays referenced by existing sessions.
func (h *QuestionHandler) DeactivateQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Deactivate(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_active": false})
}
