package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/setoos/goforms/internal/services"
	"github.com/setoos/goforms/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(gradingService services.GradingService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
	}
}

// ListPendingAnswers lists answers awaiting manual grading for a quiz
// @Summary List pending answers
// @Tags grading
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {array} models.AttemptAnswer
// @Failure 403 {object} ErrorResponse
// @Router /grading/quizzes/{quiz_id}/pending [get]
func (h *GradingHandler) ListPendingAnswers(c *gin.Context) {
	quizID := h.parseIDParam(c, "quiz_id")
	if quizID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	answers, err := h.gradingService.ListPending(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answers)
}

// GradeAnswer records a manual grade for one answer
// @Summary Grade answer
// @Description Scores a manually graded answer; the parent attempt is refinalized once nothing is pending
// @Tags grading
// @Accept json
// @Produce json
// @Param answer_id path uint true "Answer ID"
// @Param grade body services.GradeAnswerRequest true "Grade data"
// @Success 200 {object} models.AttemptAnswer
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/answers/{answer_id} [post]
func (h *GradingHandler) GradeAnswer(c *gin.Context) {
	answerID := h.parseIDParam(c, "answer_id")
	if answerID == 0 {
		return
	}
	var req services.GradeAnswerRequest
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

	h.LogRequest(c, "Grading answer", "answer_id", answerID, "score", req.Score)

	answer, err := h.gradingService.GradeAnswer(c.Request.Context(), answerID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}
