package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"quiz-delivery-service/internal/app"
)

// NewRouter wires the REST API and the attempt feed.
func NewRouter(service *app.QuizService, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h := NewHandler(service, log)
	api := router.Group("/api")
	{
		api.POST("/quiz/access", h.AccessQuiz)
		api.GET("/overview", h.Overview)

		quizzes := api.Group("/quizzes/:id")
		quizzes.POST("/submit", h.SubmitQuiz)
		quizzes.GET("/attempts", h.ListAttempts)
		quizzes.POST("/regenerate_key", h.RegenerateKey)
	}

	ws := NewWSHandler(service, log)
	router.GET("/ws/quizzes/:id/attempts", ws.ServeWS)
	return router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}
