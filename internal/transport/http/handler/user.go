package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-api/internal/domain"
	"content-api/internal/transport/http/router"
)

type UserHandler struct{ svc Content }

func NewUserHandler(svc Content) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 10 }

type userIn struct {
	Name  *string `json:"name"  form:"name"`
	Email *string `json:"email" form:"email"`
}

func (h *UserHandler) MountAPI(g *gin.RouterGroup) {
	ez := router.New(g)

	router.RegisterAction(ez, router.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			return h.svc.ListUsers(c.Request.Context())
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			var in userIn
			if err := bind(c, &in); err != nil {
				return nil, err
			}
			if err := requireParams(param{"name", in.Name != nil}, param{"email", in.Email != nil}); err != nil {
				return nil, err
			}
			return h.svc.CreateUser(c.Request.Context(), domain.NewUser{Name: *in.Name, Email: *in.Email})
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			id, err := parseID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.GetUser(c.Request.Context(), id)
		},
	})

	router.RegisterAction(ez, router.Action[domain.UserPatch, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/users/:id",
		Binder: router.BindJSON,
		Handler: func(c *gin.Context, in *domain.UserPatch) (*domain.User, error) {
			id, err := parseID(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateUser(c.Request.Context(), id, *in)
		},
	})

	router.RegisterAction(ez, router.Action[struct{}, deleted]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: router.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (deleted, error) {
			id, err := parseID(c)
			if err != nil {
				return deleted{}, err
			}
			if _, err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
				return deleted{}, err
			}
			return deleted{ID: id}, nil
		},
	})
}
