package registration

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	messageInactiveAccount = "This account is inactive."
	messageInvalidLogin    = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	messageTooManyAttempts = "Too many failed login attempts, try again later."
)

type AccountsControllerViews struct {
	Login                string
	Register             string
	RegistrationComplete string
	RegistrationClosed   string
	ActivationComplete   string
	ActivationFailed     string
	UserHome             string
	Error                string
}

func DefaultAccountsControllerViews() *AccountsControllerViews {
	return &AccountsControllerViews{
		Login:                "registration/login",
		Register:             "django_registration/registration_form",
		RegistrationComplete: "django_registration/registration_complete",
		RegistrationClosed:   "django_registration/registration_closed",
		ActivationComplete:   "django_registration/activation_complete",
		ActivationFailed:     "django_registration/activation_failed",
		UserHome:             "scionlab/ASes_overview",
		Error:                "errors/500",
	}
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Routes       RouteTable
	Views        *AccountsControllerViews
	Auther       HTTPAuthenticator
	Register     *RegisterAccountHandler
	Activate     *ActivateAccountHandler
	Config       RegistrationConfig
	ErrorHandler fiber.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func WithControllerDebug(debug bool) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Debug = debug
		return c
	}
}

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRoutes(routes RouteTable) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func WithControllerViews(views *AccountsControllerViews) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if views != nil {
			c.Views = views
		}
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = auther
		return c
	}
}

func WithControllerHandlers(register *RegisterAccountHandler, activate *ActivateAccountHandler) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Register = register
		c.Activate = activate
		return c
	}
}

func WithControllerConfig(cfg RegistrationConfig) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Config = cfg
		return c
	}
}

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger: defLogger{},
		Routes: DefaultRoutes(),
		Views:  DefaultAccountsControllerViews(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in accounts controller...")
	}

	if c.Register == nil || c.Activate == nil {
		panic("Missing command handlers in accounts controller...")
	}

	if c.Config == nil {
		panic("Missing RegistrationConfig in accounts controller...")
	}

	return c
}

// RegisterRoutes mounts the account pages on app. The activation complete
// page is mounted before the parameterized activation route.
func (a *AccountsController) RegisterRoutes(app fiber.Router) {
	protected := a.Auther.ProtectedRoute(nil)

	app.Get(a.Routes[RouteLogin], a.LoginShow).Name(RouteLogin + ".get")
	app.Post(a.Routes[RouteLogin], a.LoginPost).Name(RouteLogin + ".post")
	app.Get(a.Routes[RouteLogout], a.Logout).Name(RouteLogout)

	app.Get(a.Routes[RouteRegistrationForm], a.RegistrationShow).Name(RouteRegistrationForm + ".get")
	app.Post(a.Routes[RouteRegistrationForm], a.RegistrationCreate).Name(RouteRegistrationForm + ".post")
	app.Get(a.Routes[RouteRegistrationComplete], a.RegistrationComplete).Name(RouteRegistrationComplete)
	app.Get(a.Routes[RouteRegistrationClosed], a.RegistrationClosed).Name(RouteRegistrationClosed)

	app.Get(a.Routes[RouteActivationComplete], a.ActivationComplete).Name(RouteActivationComplete)
	app.Get(a.Routes[RouteActivate], a.ActivateAccount).Name(RouteActivate)

	app.Get(a.Routes[RouteUser], protected, a.UserHome).Name(RouteUser)
}

func (a *AccountsController) render(c *fiber.Ctx, view string, data fiber.Map) error {
	base := TemplateHelpersWithFiber(c, TemplateUserKey, a.Routes, a.Config)
	return c.Render(view, viewContext(base, data))
}

func (a *AccountsController) redirectTo(c *fiber.Ctx, route string) error {
	path, err := a.Routes.Reverse(route)
	if err != nil {
		return a.ErrorHandler(c, err)
	}
	return c.Redirect(path, fiber.StatusFound)
}

func (a *AccountsController) LoginShow(c *fiber.Ctx) error {
	return a.render(c, a.Views.Login, fiber.Map{
		"error":    "",
		"username": "",
		"next":     c.Query(RedirectFieldName),
	})
}

func (a *AccountsController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return c.Status(fiber.StatusBadRequest).Render(a.Views.Login, viewContext(
			TemplateHelpers(a.Routes, a.Config),
			fiber.Map{"error": messageInvalidLogin},
		))
	}

	if err := payload.Validate(); err != nil {
		return a.render(c, a.Views.Login, fiber.Map{
			"error":    messageInvalidLogin,
			"username": payload.GetIdentifier(),
			"next":     c.Query(RedirectFieldName),
		})
	}

	if a.Debug {
		a.Logger.Debug("login attempt: %s", print.MaybePrettyJSON(map[string]any{
			"username":    payload.GetIdentifier(),
			"remember_me": payload.RememberMe,
		}))
	}

	if err := a.Auther.Login(c, payload); err != nil {
		return a.render(c, a.Views.Login, fiber.Map{
			"error":    loginErrorMessage(err),
			"username": payload.GetIdentifier(),
			"next":     c.Query(RedirectFieldName),
		})
	}

	redirect := a.Auther.GetRedirect(c, a.Routes[RouteUser])
	return c.Redirect(redirect, fiber.StatusFound)
}

func (a *AccountsController) Logout(c *fiber.Ctx) error {
	a.Auther.Logout(c)
	return a.redirectTo(c, RouteLogin)
}

func (a *AccountsController) RegistrationShow(c *fiber.Ctx) error {
	if !a.Config.GetRegistrationOpen() {
		return a.redirectTo(c, RouteRegistrationClosed)
	}

	return a.render(c, a.Views.Register, fiber.Map{
		"errors": map[string]string{},
		"form":   RegistrationPayload{},
	})
}

func (a *AccountsController) RegistrationCreate(c *fiber.Ctx) error {
	if !a.Config.GetRegistrationOpen() {
		return a.redirectTo(c, RouteRegistrationClosed)
	}

	payload := new(RegistrationPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register account parse payload: %v", err)
		return c.Status(fiber.StatusBadRequest).Render(a.Views.Register, viewContext(
			TemplateHelpers(a.Routes, a.Config),
			fiber.Map{
				"errors": map[string]string{"form": "Failed to parse form"},
				"form":   payload,
			},
		))
	}

	payload.Normalize()

	if err := payload.Validate(); err != nil {
		a.Logger.Info("register account validate payload: %v", err)
		return a.render(c, a.Views.Register, fiber.Map{
			"errors": FormatValidationErrorToMap(err),
			"form":   payload,
		})
	}

	req := RegisterAccountMessage{
		Email:       payload.Email,
		Username:    payload.Username,
		Password1:   payload.Password1,
		Password2:   payload.Password2,
		PhoneNumber: payload.PhoneNumber,
		Scheme:      c.Protocol(),
		Host:        c.Hostname(),
	}

	if a.Debug {
		a.Logger.Debug("register account: %s", print.MaybePrettyJSON(req))
	}

	if err := a.Register.Execute(c.UserContext(), req); err != nil {
		switch {
		case IsError(err, ErrRegistrationClosed):
			return a.redirectTo(c, RouteRegistrationClosed)
		case IsError(err, ErrDuplicateAccount):
			return a.render(c, a.Views.Register, fiber.Map{
				"errors": map[string]string{"email": ErrDuplicateAccount.Message},
				"form":   payload,
			})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return a.render(c, a.Views.Register, fiber.Map{
				"errors": validationFields(richErr),
				"form":   payload,
			})
		}

		a.Logger.Error("register account error: %v", err)
		return a.ErrorHandler(c, err)
	}

	return a.redirectTo(c, RouteRegistrationComplete)
}

func (a *AccountsController) RegistrationComplete(c *fiber.Ctx) error {
	days := a.Config.GetActivationDays()
	if days <= 0 {
		days = DefaultActivationDays
	}

	return a.render(c, a.Views.RegistrationComplete, fiber.Map{
		"expiration_days": days,
	})
}

func (a *AccountsController) RegistrationClosed(c *fiber.Ctx) error {
	return a.render(c, a.Views.RegistrationClosed, fiber.Map{})
}

func (a *AccountsController) ActivateAccount(c *fiber.Ctx) error {
	req := ActivateAccountMessage{
		ActivationKey: c.Params(ActivationKeyParam),
	}

	if err := a.Activate.Execute(c.UserContext(), req); err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.Category == goerrors.CategoryInternal {
			a.Logger.Error("activate account error: %v", err)
			return a.ErrorHandler(c, err)
		}

		return a.render(c, a.Views.ActivationFailed, fiber.Map{
			"activation_error": map[string]string{
				"code":    ActivationErrorCode(err),
				"message": richErr.Message,
			},
		})
	}

	return a.redirectTo(c, RouteActivationComplete)
}

func (a *AccountsController) ActivationComplete(c *fiber.Ctx) error {
	return a.render(c, a.Views.ActivationComplete, fiber.Map{})
}

func (a *AccountsController) UserHome(c *fiber.Ctx) error {
	user, _ := GetTemplateUser(c, TemplateUserKey)
	data := fiber.Map{"user": user}
	if claims, ok := GetClaims(c.UserContext()); ok {
		data["session_expires"] = claims.Expires()
	}
	return a.render(c, a.Views.UserHome, data)
}

func (a *AccountsController) defaultErrHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	return c.Status(code).Render(a.Views.Error, viewContext(
		TemplateHelpers(a.Routes, a.Config),
		fiber.Map{"error": richErr},
	))
}

func loginErrorMessage(err error) string {
	switch {
	case IsError(err, ErrUserPending):
		return messageInactiveAccount
	case IsError(err, ErrTooManyLoginAttempts):
		return messageTooManyAttempts
	default:
		return messageInvalidLogin
	}
}

func validationFields(err *goerrors.Error) map[string]string {
	if fields, ok := err.Metadata["fields"].(map[string]string); ok && len(fields) > 0 {
		return fields
	}
	return map[string]string{"form": err.Message}
}
