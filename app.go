package registration

import (
	"context"
	"io/fs"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/scionlab/go-registration/mail"
	"github.com/scionlab/go-registration/views"
)

// Portal wires the account pages of the SCIONLab portal on a Fiber app
type Portal struct {
	App        *fiber.App
	DB         *bun.DB
	Repo       RepositoryManager
	Mailer     mail.Mailer
	Views      *views.Recorder
	Routes     RouteTable
	Auther     *Auther
	HTTPAuth   *RouteAuthenticator
	Controller *AccountsController
}

type portalOptions struct {
	logger    Logger
	mailer    mail.Mailer
	sink      ActivitySink
	clock     Clock
	routes    RouteTable
	templates fs.FS
	debug     bool
}

type PortalOption func(*portalOptions)

func WithPortalLogger(logger Logger) PortalOption {
	return func(o *portalOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPortalMailer replaces the default console mailer
func WithPortalMailer(mailer mail.Mailer) PortalOption {
	return func(o *portalOptions) {
		if mailer != nil {
			o.mailer = mailer
		}
	}
}

func WithPortalActivitySink(sink ActivitySink) PortalOption {
	return func(o *portalOptions) {
		o.sink = normalizeActivitySink(sink)
	}
}

func WithPortalClock(clock Clock) PortalOption {
	return func(o *portalOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithPortalRoutes(routes RouteTable) PortalOption {
	return func(o *portalOptions) {
		if routes != nil {
			o.routes = routes
		}
	}
}

// WithPortalTemplates serves pages and mails from templates instead of the
// embedded tree
func WithPortalTemplates(templates fs.FS) PortalOption {
	return func(o *portalOptions) {
		if templates != nil {
			o.templates = templates
		}
	}
}

func WithPortalDebug(debug bool) PortalOption {
	return func(o *portalOptions) {
		o.debug = debug
	}
}

// NewPortal builds repositories, commands, authentication and controller on
// db and mounts them on a new Fiber app.
func NewPortal(db *bun.DB, authCfg Config, regCfg RegistrationConfig, opts ...PortalOption) (*Portal, error) {
	if db == nil {
		return nil, goerrors.New("portal requires a database", goerrors.CategoryInternal)
	}

	o := &portalOptions{
		logger:    defLogger{},
		sink:      noopActivitySink{},
		clock:     time.Now,
		routes:    DefaultRoutes(),
		templates: views.Templates(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.mailer == nil {
		o.mailer = mail.NewConsole(o.logger)
	}

	repo := NewRepositoryManager(db, WithUsersStateMachineOptions(
		WithStateMachineClock(o.clock),
		WithStateMachineActivitySink(o.sink),
		WithStateMachineLogger(o.logger),
	))

	if err := repo.Validate(); err != nil {
		return nil, err
	}

	composer, err := NewActivationEmailComposer(o.templates, o.routes, regCfg)
	if err != nil {
		return nil, err
	}

	provider := NewUserProvider(UsersTracker(repo.Users())).
		WithLogger(o.logger).
		WithClock(o.clock)

	tokenService := NewTokenService(
		[]byte(authCfg.GetSigningKey()),
		authCfg.GetTokenExpiration(),
		authCfg.GetIssuer(),
		authCfg.GetAudience(),
		o.logger,
	).WithClock(o.clock).WithSigningMethod(authCfg.GetSigningMethod())

	auther := NewAuthenticator(provider, authCfg).
		WithLogger(o.logger).
		WithActivitySink(o.sink).
		WithTokenService(tokenService)

	httpAuth, err := NewHTTPAuthenticator(auther, authCfg, o.routes[RouteLogin])
	if err != nil {
		return nil, err
	}
	httpAuth.Logger = o.logger

	register := NewRegisterAccountHandler(repo, o.mailer, composer, regCfg,
		WithRegisterLogger(o.logger),
		WithRegisterActivitySink(o.sink),
		WithRegisterClock(o.clock),
	)

	activate := NewActivateAccountHandler(repo, regCfg,
		WithActivateLogger(o.logger),
		WithActivateActivitySink(o.sink),
		WithActivateClock(o.clock),
	)

	controller := NewAccountsController(
		WithControllerDebug(o.debug),
		WithControllerLogger(o.logger),
		WithControllerRoutes(o.routes),
		WithControllerAuther(httpAuth),
		WithControllerHandlers(register, activate),
		WithControllerConfig(regCfg),
	)

	recorder := views.NewRecorder(views.NewFromFS(o.templates))

	app := fiber.New(fiber.Config{
		Views:                 recorder,
		ErrorHandler:          controller.ErrorHandler,
		DisableStartupMessage: true,
	})

	controller.RegisterRoutes(app)

	return &Portal{
		App:        app,
		DB:         db,
		Repo:       repo,
		Mailer:     o.mailer,
		Views:      recorder,
		Routes:     o.routes,
		Auther:     auther,
		HTTPAuth:   httpAuth,
		Controller: controller,
	}, nil
}

// Listen serves the portal until ctx is done
func (p *Portal) Listen(ctx context.Context, address string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- p.App.Listen(address)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return p.App.ShutdownWithTimeout(5 * time.Second)
	}
}
