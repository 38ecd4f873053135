package response

import (
	"github.com/gin-gonic/gin"
)

// Body is the envelope of every response: data on success, error otherwise.
type Body struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func OK(data any) Body {
	if data == nil {
		data = struct{}{}
	}
	return Body{Data: data}
}

func Error(msg string) Body { return Body{Error: msg} }

// JSON writes data with status.
func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, OK(data))
}

// Fail writes err with the status Status picks for it.
func Fail(c *gin.Context, err error) {
	c.JSON(Status(err), Error(err.Error()))
}

// Abort stops the handler chain with an error envelope.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Error(msg))
}
