package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	resp "content-api/internal/transport/http/response"
)

// EZ registers typed actions on a route group.
type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

type Binder string

const (
	BindJSON  Binder = "json"  // request body
	BindQuery Binder = "query" // URL query
	BindNone  Binder = "none"  // handler reads c.Param / the form itself
)

// AErr is a transport level error with an explicit status.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error   { return e.Err }
func (e *AErr) StatusCode() int { return e.Code }

func BadRequest(msg string) error { return &AErr{Code: http.StatusBadRequest, Msg: msg} }

// Action is one endpoint: I is bound from the request, O is the data payload.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Status  int // success status, 200 when zero
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	ok := a.Status
	if ok == 0 {
		ok = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			fail(c, BadRequest("invalid request: "+bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			fail(c, err)
			return
		}
		resp.JSON(c, ok, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	resp.Fail(c, err)
}
