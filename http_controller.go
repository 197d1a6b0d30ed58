package auth

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes are the paths the controller registers under.
type AuthControllerRoutes struct {
	Signup string
	Login  string
	Logout string
	OAuth  string
}

// AuthController is a thin JSON transport over a Manager. It exists so
// embedders get working endpoints out of the box; the transport layer
// remains consumer-replaceable and the controller adds no semantics of its
// own beyond status mapping.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Manager      *Manager
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// NewAuthController creates a controller with default routes under /auth.
func NewAuthController(manager *Manager, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:  defLogger{},
		Manager: manager,
		Routes: &AuthControllerRoutes{
			Signup: "/auth/signup",
			Login:  "/auth/login",
			Logout: "/auth/logout",
			OAuth:  "/auth/oauth",
		},
	}
	c.ErrorHandler = c.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterAuthRoutes wires the signup, login and logout flows, plus the
// oauth redirect when the manager carries a provider.
func RegisterAuthRoutes[T any](app router.Router[T], manager *Manager, opts ...AuthControllerOption) {
	controller := NewAuthController(manager, opts...)

	app.Post(controller.Routes.Signup, controller.SignupPost).SetName("auth.signup.post")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("auth.login.post")
	app.Post(controller.Routes.Logout, controller.LogoutPost).SetName("auth.logout.post")

	if manager.OAuth() != nil {
		app.Get(controller.Routes.OAuth, controller.OAuthRedirect).SetName("auth.oauth.get")
	}
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	fields, err := a.bindFields(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Manager.Signup(ctx, fields)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	fields, err := a.bindFields(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Manager.Login(ctx, fields)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	if err := a.Manager.Logout(ctx); err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.NoContent(router.StatusNoContent)
}

func (a *AuthController) OAuthRedirect(ctx router.Context) error {
	provider := a.Manager.OAuth()
	if provider == nil {
		return a.ErrorHandler(ctx, ErrInvalidCredentials)
	}
	return ctx.Redirect(provider.AuthorizationURL(), router.StatusTemporaryRedirect)
}

// bindFields decodes the open JSON body and checks the fixed part every
// flow needs: a non-empty password string. Schema level validation of the
// remaining fields belongs to the manager.
func (a *AuthController) bindFields(ctx router.Context) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(ctx.Body(), &fields); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	if a.Debug {
		a.Logger.Debug("auth payload: %s", print.MaybePrettyJSON(stripPassword(fields)))
	}

	password, _ := fields["password"].(string)
	if err := validation.Validate(password, validation.Required); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "password is required").
			WithTextCode(TextCodeInvalidPassword)
	}

	return fields, nil
}

func (a *AuthController) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"auth controller error",
		"error", richErr.Message,
		"category", richErr.Category,
		"path", c.OriginalURL(),
	)

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return router.StatusBadRequest
	case errors.CategoryAuth, errors.CategoryAuthz:
		return router.StatusUnauthorized
	case errors.CategoryNotFound:
		return router.StatusNotFound
	case errors.CategoryConflict:
		return router.StatusConflict
	default:
		return router.StatusInternalServerError
	}
}
