package newsletter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pevans/trendstoday/logger"
)

// APIServer serves the newsletter endpoints.
type APIServer struct {
	store  *SubscriberStore
	logger *slog.Logger
}

// NewAPIServer creates a newsletter API server.
func NewAPIServer(store *SubscriberStore, log *slog.Logger) *APIServer {
	return &APIServer{
		store:  store,
		logger: logger.Or(log),
	}
}

// SetupRouter configures a standalone Gin router with the newsletter routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes adds the newsletter routes to r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/newsletter")
	api.POST("/subscribe", s.HandleSubscribe)
	api.GET("/subscribe", s.HandleDescribe)
	api.POST("/unsubscribe", s.HandleUnsubscribe)
	api.GET("/subscribers", s.HandleListSubscribers)
}

// SubscribeRequest is the body of POST /api/newsletter/subscribe.
type SubscribeRequest struct {
	Email      string `json:"email"`
	Source     string `json:"source"`
	LeadMagnet bool   `json:"leadMagnet"`
}

// SubscribeResponse acknowledges a signup.
type SubscribeResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Subscriber *Subscriber `json:"subscriber,omitempty"`
}

// UnsubscribeRequest is the body of POST /api/newsletter/unsubscribe.
type UnsubscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

// ListSubscribersResponse is the body of GET /api/newsletter/subscribers.
type ListSubscribersResponse struct {
	Subscribers []Subscriber `json:"subscribers"`
	Total       int          `json:"total"`
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSubscriberNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrDuplicateEmail):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "Invalid email address"))
	default:
		s.logger.Error("newsletter request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleSubscribe handles POST /api/newsletter/subscribe.
func (s *APIServer) HandleSubscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	sub, err := s.store.Subscribe(req.Email, req.Source, req.LeadMagnet)
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.logger.Info("new newsletter subscription",
		"id", sub.ID, "source", sub.Source, "lead_magnet", sub.LeadMagnet)

	c.JSON(http.StatusOK, SubscribeResponse{
		Success:    true,
		Message:    "Successfully subscribed to newsletter",
		Subscriber: sub,
	})
}

// HandleDescribe handles GET /api/newsletter/subscribe.
func (s *APIServer) HandleDescribe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Newsletter subscription endpoint",
		"methods": []string{"POST"},
	})
}

// HandleUnsubscribe handles POST /api/newsletter/unsubscribe.
func (s *APIServer) HandleUnsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	if err := s.store.Unsubscribe(req.Email); err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully unsubscribed"})
}

// HandleListSubscribers handles GET /api/newsletter/subscribers.
func (s *APIServer) HandleListSubscribers(c *gin.Context) {
	filter := Filter{}

	if source := c.Query("source"); source != "" {
		filter.Source = &source
	}
	if confirmed := c.Query("confirmed"); confirmed != "" {
		v := confirmed == "true"
		filter.Confirmed = &v
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}

	subs, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListSubscribersResponse{
		Subscribers: subs,
		Total:       len(subs),
	})
}
