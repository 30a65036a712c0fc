package handlers

import (
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/setoos/goforms/internal/services"
	"github.com/setoos/goforms/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	gradingHandler *GradingHandler
	authClient     *casdoorsdk.Client
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authClient *casdoorsdk.Client,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), serviceManager.ImportExport(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading(), logger),
		authClient:     authClient,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware(hm.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "goforms",
		})
	})

	v1 := router.Group("/api/v1")

	// The learner read path tolerates anonymous callers so public quizzes
	// work without an account.
	public := v1.Group("")
	public.Use(OptionalAuthMiddleware(hm.authClient))
	{
		public.GET("/quizzes/:id/take", hm.quizHandler.TakeQuiz)
	}

	authed := v1.Group("")
	authed.Use(AuthMiddleware(hm.authClient, hm.logger))
	{
		quizzes := authed.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/search", hm.quizHandler.SearchQuizzes)
			quizzes.GET("/stats", hm.quizHandler.GetCreatorStats)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)
			quizzes.PUT("/:id/questions", hm.quizHandler.SaveQuestions)
			quizzes.POST("/:id/publish", hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/archive", hm.quizHandler.ArchiveQuiz)
			quizzes.GET("/:id/stats", hm.quizHandler.GetQuizStats)

			quizzes.POST("/:id/questions/import", hm.quizHandler.ImportQuestions)
			quizzes.GET("/:id/questions/export", hm.quizHandler.ExportQuestions)
		}

		attempts := authed.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)
			attempts.DELETE("/:id", hm.attemptHandler.AbandonAttempt)
		}

		grading := authed.Group("/grading")
		{
			grading.GET("/quizzes/:quiz_id/pending", hm.gradingHandler.ListPendingAnswers)
			grading.POST("/answers/:answer_id", hm.gradingHandler.GradeAnswer)
		}
	}
}
