package analytics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIServer serves the dashboard.
type APIServer struct {
	builder *Builder
}

// NewAPIServer creates an analytics API server.
func NewAPIServer(builder *Builder) *APIServer {
	return &APIServer{builder: builder}
}

// RegisterRoutes adds GET /api/analytics to r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/analytics", s.HandleDashboard)
}

// HandleDashboard handles GET /api/analytics.
func (s *APIServer) HandleDashboard(c *gin.Context) {
	dashboard, err := s.builder.Build(c.Request.Context())
	if err != nil {
		s.builder.logger.Error("analytics dashboard failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     err.Error(),
			"timestamp": s.builder.now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": dashboard})
}
