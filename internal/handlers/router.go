package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/session"
)

// SetupRouter configures the application routes
func SetupRouter(
	tmpl *template.Template,
	guard *session.Guard,
	eventHandler *EventHandler,
	userEventHandler *UserEventHandler,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(loggingMiddleware(logger.Named("http")))
	r.Use(guard.Middleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/events")
	})

	events := r.Group("/events")
	{
		events.GET("", eventHandler.ShowEvents)
		events.POST("/:id/reserve", eventHandler.ReserveTicket)
	}

	user := r.Group("/user", session.Require())
	{
		user.GET("/events", userEventHandler.ShowUserEvents)
		user.POST("/events", userEventHandler.CreateEvent)
		user.POST("/events/modal", userEventHandler.OpenModal)
		user.POST("/events/modal/dismiss", userEventHandler.DismissModal)
	}

	return r
}
