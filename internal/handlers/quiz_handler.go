package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/services"
	"github.com/setoos/goforms/internal/utils"
)

// 10 MiB cap on uploaded workbooks.
const maxImportSize = 10 << 20

type QuizHandler struct {
	BaseHandler
	quizService  services.QuizService
	importExport services.ImportExportService
}

func NewQuizHandler(
	quizService services.QuizService,
	importExport services.ImportExportService,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:  NewBaseHandler(logger),
		quizService:  quizService,
		importExport: importExport,
	}
}

// CreateQuiz creates a new quiz
// @Summary Create quiz
// @Description Creates a new draft quiz owned by the authenticated user
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz retrieves a quiz by ID
// @Summary Get quiz
// @Description Retrieves a quiz with its questions; non-owners only see published quizzes
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// TakeQuiz retrieves the learner view of a published quiz
// @Summary Get quiz for taking
// @Description Retrieves a published quiz with answer keys stripped; pass the access code via the X-Access-Code header for protected quizzes
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /quizzes/{id}/take [get]
func (h *QuizHandler) TakeQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var accessCode *string
	if code := c.GetHeader("X-Access-Code"); code != "" {
		accessCode = &code
	}

	quiz, err := h.quizService.GetForLearner(c.Request.Context(), id, accessCode)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes lists the authenticated user's quizzes
// @Summary List quizzes
// @Tags quizzes
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ListResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	filters := parseQuizFilters(c)

	quizzes, total, err := h.quizService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: quizzes, Total: total})
}

// SearchQuizzes searches the user's quizzes by title and description
// @Summary Search quizzes
// @Tags quizzes
// @Produce json
// @Param q query string true "Search query"
// @Success 200 {object} ListResponse
// @Router /quizzes/search [get]
func (h *QuizHandler) SearchQuizzes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Missing search query"})
		return
	}

	quizzes, total, err := h.quizService.Search(c.Request.Context(), query, parseQuizFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: quizzes, Total: total})
}

// UpdateQuiz updates quiz settings
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param quiz body services.UpdateQuizRequest true "Quiz data"
// @Success 200 {object} services.QuizResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz soft deletes a quiz without attempts
// @Summary Delete quiz
// @Tags quizzes
// @Param id path uint true "Quiz ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SaveQuestions replaces the quiz's question set
// @Summary Save questions
// @Description Replaces the quiz's question set wholesale with the submitted list
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param questions body services.SaveQuestionsRequest true "Question set"
// @Success 200 {object} services.QuizResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /quizzes/{id}/questions [put]
func (h *QuizHandler) SaveQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req services.SaveQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Saving questions", "quiz_id", id, "count", len(req.Questions))

	quiz, err := h.quizService.SaveQuestions(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// PublishQuiz publishes a quiz
// @Summary Publish quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id}/publish [post]
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ArchiveQuiz archives a quiz
// @Summary Archive quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizResponse
// @Router /quizzes/{id}/archive [post]
func (h *QuizHandler) ArchiveQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Archive(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// GetQuizStats returns attempt statistics for a quiz
// @Summary Get quiz statistics
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} repositories.QuizStats
// @Router /quizzes/{id}/stats [get]
func (h *QuizHandler) GetQuizStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.quizService.GetStats(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCreatorStats returns aggregate statistics for the authenticated author
// @Summary Get creator statistics
// @Tags quizzes
// @Produce json
// @Success 200 {object} repositories.CreatorStats
// @Router /quizzes/stats [get]
func (h *QuizHandler) GetCreatorStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.quizService.GetCreatorStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ImportQuestions imports questions from an uploaded xlsx workbook
// @Summary Import questions
// @Description Appends questions parsed from an xlsx workbook to the quiz
// @Tags quizzes
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} services.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id}/questions/import [post]
func (h *QuizHandler) ImportQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "File exceeds the upload size limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unable to read uploaded file",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unable to read uploaded file",
		})
		return
	}

	summary, err := h.importExport.ImportQuestionsXLSX(c.Request.Context(), id, data, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportQuestions exports the quiz's questions as an xlsx workbook
// @Summary Export questions
// @Tags quizzes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} binary
// @Router /quizzes/{id}/questions/export [get]
func (h *QuizHandler) ExportQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	data, err := h.importExport.ExportQuestionsXLSX(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseQuizFilters(c *gin.Context) repositories.QuizFilters {
	filters := repositories.QuizFilters{
		Limit:     20,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if status := c.Query("status"); status != "" {
		s := models.QuizStatus(status)
		filters.Status = &s
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 100 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset >= 0 {
		filters.Offset = offset
	}
	return filters
}
