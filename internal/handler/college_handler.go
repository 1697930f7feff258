package handler

import (
	"net/http"

	"github.com/eduvista/entrance-backend/internal/middleware"
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/eduvista/entrance-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// CollegeHandler handles a college's test definitions and results.
type CollegeHandler struct {
	testService *service.TestDefinitionService
}

// NewCollegeHandler creates a new CollegeHandler.
func NewCollegeHandler(testService *service.TestDefinitionService) *CollegeHandler {
	return &CollegeHandler{testService: testService}
}

// CreateTest godoc
// POST /api/v1/college/tests
func (h *CollegeHandler) CreateTest(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.testService.Create(c.Request.Context(), id.CollegeID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": def})
}

// ListTests godoc
// GET /api/v1/college/tests
func (h *CollegeHandler) ListTests(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	defs, err := h.testService.ListByCollege(c.Request.Context(), id.CollegeID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": defs})
}

// GetTestResults godoc
// GET /api/v1/college/tests/:test_id/results
func (h *CollegeHandler) GetTestResults(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.testService.Results(c.Request.Context(), id.CollegeID, c.Param("test_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}
