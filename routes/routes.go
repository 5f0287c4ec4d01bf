package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChristophStock/tvteam-ted/handlers"
	"github.com/ChristophStock/tvteam-ted/middleware"
	"github.com/ChristophStock/tvteam-ted/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // vote/display pages are served from other origins
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	questionHandler *handlers.QuestionHandler,
	stateHandler *handlers.StateHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		// Public: voter devices and the display read state and cast votes.
		api.GET("/questions", questionHandler.ListQuestions)
		api.GET("/voting-status", questionHandler.GetVotingStatus)
		api.GET("/status", stateHandler.GetStatus)
		api.GET("/config", stateHandler.GetConfig)
		api.POST("/questions/:id/vote", questionHandler.CastVote)

		// Operator-only lifecycle and display control.
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.POST("/questions", questionHandler.CreateQuestion)
			protected.PUT("/questions/:id", questionHandler.UpdateQuestion)
			protected.DELETE("/questions/:id", questionHandler.DeleteQuestion)
			protected.POST("/questions/:id/activate", questionHandler.ActivateQuestion)
			protected.POST("/questions/:id/close", questionHandler.CloseQuestion)
			protected.POST("/questions/:id/reset", questionHandler.ResetQuestion)
			protected.GET("/display-mode", stateHandler.GetDisplayMode)
			protected.POST("/display-mode", stateHandler.SetDisplayMode)
		}
	}

	// Real-time channel shared by voters, control console, and the display.
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		hub.RegisterClient(conn)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
