// internal/api/rest/handlers.go
package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/sensor"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}}
}

// GET /health
// 503 only while the device has never answered.
func (s *Server) healthCheck(c *gin.Context) {
	v := s.store.Get()

	code := http.StatusOK
	if v.Health == status.HealthError {
		code = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":      status.HealthName(v.Health),
		"health_code": v.Health,
		"timestamp":   s.now().Unix(),
	}
	if v.Snapshot != nil {
		body["generation"] = v.Snapshot.Generation
	}
	c.JSON(code, body)
}

// GET /api/v1/snapshot
func (s *Server) getSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, status.Encode(s.store.Get(), s.table, s.now()))
}

// GET /api/v1/sensors
func (s *Server) listSensors(c *gin.Context) {
	out := make([]sensor.State, 0, len(s.sensors))
	for _, sn := range s.sensors {
		out = append(out, sn.Read())
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/v1/sensors/:address
func (s *Server) getSensor(c *gin.Context) {
	n, err := strconv.ParseUint(c.Param("address"), 10, 16)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("SENSOR_400", "Invalid register address", err.Error()))
		return
	}

	addr := registers.Address(n)
	for _, sn := range s.sensors {
		if sn.Address == addr {
			c.JSON(http.StatusOK, sn.Read())
			return
		}
	}

	c.JSON(http.StatusNotFound, NewErrorResponse("SENSOR_404", "Unknown register address", n))
}

// GET /api/v1/link
func (s *Server) getLink(c *gin.Context) {
	state, lastErr := s.link.State()
	c.JSON(http.StatusOK, gin.H{
		"state":      state.String(),
		"last_error": lastErr,
	})
}
