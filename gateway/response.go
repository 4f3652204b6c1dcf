package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/service"
)

// envelope is the body shape of every API response.
type envelope struct {
	Success    bool                `json:"success"`
	Data       any                 `json:"data,omitempty"`
	Message    string              `json:"message,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
}

var statusByKind = map[errs.Kind]int{
	errs.KindValidation: http.StatusBadRequest,
	errs.KindAuth:       http.StatusUnauthorized,
	errs.KindForbidden:  http.StatusForbidden,
	errs.KindNotFound:   http.StatusNotFound,
	errs.KindInternal:   http.StatusInternalServerError,
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message})
}

func respondPage(c *gin.Context, data any, p service.Pagination) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

// fail renders err and aborts the chain. Internal errors are logged with
// their cause; the client only sees a generic message.
func (g *Gateway) fail(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if kind == errs.KindInternal {
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: errs.MessageOf(err)})
}

// bind decodes the JSON body into dst, reporting malformed input as a
// validation failure.
func (g *Gateway) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		g.fail(c, errs.Validation("Invalid request body"))
		return false
	}
	return true
}
