package response

import (
	"github.com/gin-gonic/gin"
)

// Pagination is the listing metadata attached to paged responses.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes totalPages = ceil(total/limit).
func NewPagination(total int64, page, limit int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// Envelope is the uniform response body: status is "success" or "error".
type Envelope struct {
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Status: "success", Message: message, Data: data})
}

func SuccessPage(c *gin.Context, status int, message string, data any, p *Pagination) {
	c.JSON(status, Envelope{Status: "success", Message: message, Data: data, Pagination: p})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Status: "error", Message: message})
}

// ErrorDetail carries an extra error description, used only in development
// mode for unexpected failures.
func ErrorDetail(c *gin.Context, status int, message, detail string) {
	c.JSON(status, Envelope{Status: "error", Message: message, Error: detail})
}
