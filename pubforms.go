// Package pubforms serves the blog creation and sign-up pages of a publishing
// site. Each page validates its form, previews the selected image and relays
// the completed form to the backend REST API as one multipart request.
//
// Templates are provided through the ViewFuncs struct; DefaultViews returns
// the built-in set.
package pubforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/eringen/pubforms/backend"
	"github.com/eringen/pubforms/drafts"
	"github.com/eringen/pubforms/forms"
	"github.com/eringen/pubforms/metrics"
	"github.com/eringen/pubforms/views"
)

// ViewFuncs holds the components the handlers render.
type ViewFuncs struct {
	BlogCreate     func(f views.BlogForm) templ.Component
	ImageSelection func(s views.FileSelection) templ.Component
	ContentPreview func(content string) templ.Component
	SignUp         func(f views.SignUpForm) templ.Component
	PhotoSelection func(s views.FileSelection) templ.Component
	Login          func(f views.LoginForm) templ.Component
	Profile        func(p views.ProfilePage) templ.Component
	NotFound       func(p views.Page) templ.Component
	ServerError    func(p views.Page) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		BlogCreate:     views.BlogCreate,
		ImageSelection: views.ImageSelection,
		ContentPreview: views.ContentPreview,
		SignUp:         views.SignUp,
		PhotoSelection: views.PhotoSelection,
		Login:          views.Login,
		Profile:        views.Profile,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

// Backend is the REST API the forms are submitted to.
type Backend interface {
	Categories(ctx context.Context) ([]forms.Category, error)
	CreateBlog(ctx context.Context, accessToken string, b *forms.Blog) error
	Register(ctx context.Context, u *forms.SignUp) error
	ObtainToken(ctx context.Context, username, password string) (backend.TokenPair, error)
}

// App wires together the drafts store, backend client, handlers, middleware
// and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Drafts  *drafts.Store
	Backend Backend
	Metrics *metrics.Manager
	Views   ViewFuncs

	registry      *prometheus.Registry
	submitLimiter *SubmitLimiter
	blogFiles     *forms.FileHandler
	photoFiles    *forms.FileHandler
	stopCleanup   func()
	customRoutes  []func(*App)
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, vf ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		Views:    vf,
		registry: prometheus.NewRegistry(),
		blogFiles: &forms.FileHandler{
			Validator:    forms.NewImageValidator(forms.MaxPhotoSize),
			Preview:      true,
			PreviewWidth: forms.DefaultPreviewWidth,
		},
		photoFiles: &forms.FileHandler{
			Validator: forms.NewImageValidator(forms.MaxPhotoSize),
		},
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the drafts store, creates the backend client, and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Setup() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("pubforms: SessionSecret is required")
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewManager("pubforms", "web", a.registry)

	if a.Drafts == nil {
		store, err := drafts.NewStore(a.Config.DraftsDatabasePath)
		if err != nil {
			return fmt.Errorf("pubforms: init drafts store: %w", err)
		}
		a.Drafts = store
	}
	a.stopCleanup = a.Drafts.StartCleanupScheduler(a.Config.DraftMaxAge, time.Hour)

	if a.Backend == nil {
		a.Backend = backend.NewClient(backend.ClientParams{
			BaseURL:     a.Config.APIBaseURL,
			HTTPClient:  backend.NewHTTPClient(a.Config.APITimeout),
			CategoryTTL: a.Config.CategoryCacheTTL,
			Metrics:     a.Metrics,
		})
	}

	a.submitLimiter = NewSubmitLimiter(a.Config.SubmitLimit, a.Config.SubmitLimitWindow)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves until Shutdown is called.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	log.Infof("pubforms listening on %s, backend %s", a.Config.Addr, a.Config.APIBaseURL)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.StaticFS("/static", views.Static())
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	e.GET("/", handleHome)

	e.GET("/blogs/create/", a.handleBlogCreate, a.requireAuth)
	e.POST("/blogs/create/", a.handleBlogSubmit, a.requireAuth)
	e.POST("/blogs/create/image/", a.handleBlogImage, a.requireAuth)
	e.POST("/blogs/create/content/", a.handleBlogContent, a.requireAuth)

	e.GET("/register/", a.handleSignUp)
	e.POST("/register/", a.handleSignUpSubmit)
	e.POST("/register/photo/", a.handleSignUpPhoto)

	e.GET("/login/", a.handleLogin)
	e.POST("/login/", a.handleLoginSubmit)
	e.POST("/logout/", handleLogout)
	e.GET("/profile/", a.handleProfile, a.requireAuth)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.submitLimiter != nil {
		a.submitLimiter.Stop()
	}
	var err error
	if a.Drafts != nil {
		err = multierr.Append(err, a.Drafts.Close())
	}
	return err
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
