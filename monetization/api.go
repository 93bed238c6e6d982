package monetization

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pevans/trendstoday/logger"
)

// Attribution cookies.
const (
	DealAlertCookie    = "deal_alert_signup"
	DealAlertCookieAge = 7 * 24 * 60 * 60
	AffiliateCookie    = "last_affiliate_click"
	AffiliateCookieAge = 30 * 24 * 60 * 60
)

// APIServer serves deal alerts and revenue tracking.
type APIServer struct {
	store         *Store
	logger        *slog.Logger
	secureCookies bool
}

// NewAPIServer creates a monetization API server. Cookies are marked Secure
// when secureCookies is set.
func NewAPIServer(store *Store, log *slog.Logger, secureCookies bool) *APIServer {
	return &APIServer{
		store:         store,
		logger:        logger.Or(log),
		secureCookies: secureCookies,
	}
}

// SetupRouter configures a standalone Gin router with the monetization
// routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes adds the monetization routes to r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/deal-alerts", s.HandleCreateAlert)
	api.GET("/deal-alerts", s.HandleListAlerts)
	api.POST("/revenue-tracking", s.HandleTrackEvent)
	api.GET("/revenue-tracking", s.HandleRevenueMetrics)
}

// DealAlertRequest is the body of POST /api/deal-alerts.
type DealAlertRequest struct {
	Email        string  `json:"email"`
	ProductName  string  `json:"productName"`
	TargetPrice  float64 `json:"targetPrice"`
	CurrentPrice float64 `json:"currentPrice"`
}

// DealAlertData echoes an accepted alert.
type DealAlertData struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	ProductName     string  `json:"productName"`
	TargetPrice     float64 `json:"targetPrice"`
	ExpectedSavings string  `json:"expectedSavings"`
}

// TrackEventRequest is the body of POST /api/revenue-tracking.
type TrackEventRequest struct {
	EventType   string         `json:"eventType"`
	ProductName string         `json:"productName,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	Value       float64        `json:"value,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	SessionID   string         `json:"sessionId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
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
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrTargetNotBelow),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrMissingEventType),
		errors.Is(err, ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	case errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrUnknownMetric):
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", err.Error()))
	default:
		s.logger.Error("monetization request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleCreateAlert handles POST /api/deal-alerts.
func (s *APIServer) HandleCreateAlert(c *gin.Context) {
	var req DealAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	alert, err := s.store.CreateAlert(req.Email, req.ProductName, req.TargetPrice, req.CurrentPrice)
	if err != nil {
		s.handleError(c, err)
		return
	}

	savings := ExpectedSavings(alert.TargetPrice, alert.CurrentPrice)
	s.logger.Info("deal alert signup",
		"product", alert.ProductName, "target_price", alert.TargetPrice, "savings", savings)

	c.SetCookie(DealAlertCookie, "true", DealAlertCookieAge, "/", "", s.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Deal alert created successfully",
		"data": DealAlertData{
			ID:              alert.ID.String(),
			Email:           alert.Email,
			ProductName:     alert.ProductName,
			TargetPrice:     alert.TargetPrice,
			ExpectedSavings: savings,
		},
	})
}

// HandleListAlerts handles GET /api/deal-alerts?email=.
func (s *APIServer) HandleListAlerts(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Email parameter required"))
		return
	}

	alerts, err := s.store.ActiveAlerts(email)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "alerts": alerts})
}

// HandleTrackEvent handles POST /api/revenue-tracking.
func (s *APIServer) HandleTrackEvent(c *gin.Context) {
	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	event, err := s.store.RecordEvent(Event{
		Type:        req.EventType,
		ProductName: req.ProductName,
		Provider:    req.Provider,
		Value:       req.Value,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Metadata:    req.Metadata,
		UserAgent:   c.GetHeader("User-Agent"),
		Referer:     c.GetHeader("Referer"),
		IP:          ClientIP(c.GetHeader("X-Forwarded-For")),
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.logger.Info("revenue event tracked",
		"event_id", event.ID, "type", event.Type, "provider", event.Provider, "value", event.Value)

	if event.Type == EventAffiliateClick {
		attribution, err := json.Marshal(map[string]any{
			"provider":    event.Provider,
			"productName": event.ProductName,
			"timestamp":   event.Timestamp.UnixMilli(),
		})
		if err == nil {
			c.SetCookie(AffiliateCookie, string(attribution), AffiliateCookieAge, "/", "", s.secureCookies, true)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"eventId": event.ID,
		"message": "Event tracked successfully",
	})
}

// HandleRevenueMetrics handles GET /api/revenue-tracking?period=&metric=.
func (s *APIServer) HandleRevenueMetrics(c *gin.Context) {
	period := c.DefaultQuery("period", DefaultPeriod)
	window, err := ParsePeriod(period)
	if err != nil {
		s.handleError(c, err)
		return
	}

	now := s.store.Now()
	events, err := s.store.EventsSince(now.Add(-window))
	if err != nil {
		s.handleError(c, err)
		return
	}

	metrics, err := Aggregate(events, period, now).Metric(c.DefaultQuery("metric", "all"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": metrics,
		"period":  period,
	})
}
