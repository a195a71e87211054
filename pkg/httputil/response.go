package httputil

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// PageRequest is the 0-based paging and sorting input of list endpoints.
type PageRequest struct {
	Page int
	Size int
	Sort []string
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// ParsePageRequest reads page, size and repeated sort query parameters.
func ParsePageRequest(c *gin.Context, defaultSize int) PageRequest {
	req := PageRequest{Page: 0, Size: defaultSize}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v >= 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 {
		req.Size = v
	}
	if req.Size > MaxPageSize {
		req.Size = MaxPageSize
	}
	for _, s := range c.QueryArray("sort") {
		if s = strings.TrimSpace(s); s != "" {
			req.Sort = append(req.Sort, s)
		}
	}
	return req
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithCreated sends a 201 success response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"
	var details interface{}

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.StatusCode()
		if statusCode != http.StatusInternalServerError {
			message = appErr.Message
		}
		if len(appErr.Details) > 0 {
			details = appErr.Details
		}
	}

	if statusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Details: details,
	})
}

// RespondWithMessage sends an error response with a plain message
func RespondWithMessage(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, Response{
		Status:  "error",
		Message: message,
	})
}
