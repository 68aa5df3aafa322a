package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Pawandasila/Ecom-backend/docs" //this is required to generate swagger docs
	"github.com/Pawandasila/Ecom-backend/internal/auth"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/sales"
	"github.com/Pawandasila/Ecom-backend/internal/domain/storage"
	"github.com/Pawandasila/Ecom-backend/internal/mailer"
	"github.com/Pawandasila/Ecom-backend/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// salesService is the cart and order workflow, implemented by *sales.Service.
type salesService interface {
	GetCart(ctx context.Context, userID int64) (*sales.CartView, error)
	AddItem(ctx context.Context, userID int64, in sales.AddItemInput) (*sales.CartView, error)
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*sales.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (*sales.CartView, error)
	ClearCart(ctx context.Context, userID int64) (*sales.CartView, error)

	CreateOrder(ctx context.Context, userID int64, in sales.CheckoutInput) (*orders.Order, bool, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (*orders.Order, error)
	GetMyOrder(ctx context.Context, userID, orderID int64) (*orders.Order, error)
	ListMyOrders(ctx context.Context, userID int64, limit, offset int) ([]orders.Order, int, error)

	AdvanceOrder(ctx context.Context, orderID int64, to orders.Status) (*orders.Order, error)
	ListAllOrders(ctx context.Context, status orders.Status, limit, offset int) ([]orders.Order, int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type application struct {
	config        config
	store         *storage.Container
	sales         salesService
	db            pinger
	logger        *zap.SugaredLogger
	images        imageStore
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter

	bg sync.WaitGroup
}

type config struct {
	addr            string
	db              dbConfig
	env             string
	apiURL          string
	mail            mailConfig
	auth            authConfig
	redis           redisConfig
	kafka           kafkaConfig
	cloudinaryURL   string
	orderNumberSalt string
	rateLimiter     ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
	migrate     bool
}

type redisConfig struct {
	addr     string
	password string
	db       int
}

type kafkaConfig struct {
	brokers  []string
	producer string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(app.RateLimiterMiddleware)

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/register", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/profile", app.getProfileHandler)
			r.Put("/profile", app.updateProfileHandler)
			r.Put("/change-password", app.changePasswordHandler)
			r.Post("/logout", app.logoutHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.RequireAdmin)
				r.Get("/", app.listUsersHandler)
				r.Delete("/{userID}", app.deleteUserHandler)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.listProductsHandler)
			r.Get("/category/{category}", app.listProductsByCategoryHandler)
			r.Get("/{productID}", app.getProductHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.RequireAdmin)
				r.Post("/", app.createProductHandler)
				r.Put("/{productID}", app.updateProductHandler)
				r.Delete("/{productID}", app.deleteProductHandler)
				r.Post("/{productID}/image", app.uploadProductImageHandler)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.getCartHandler)
			r.Post("/", app.addCartItemHandler)
			r.Delete("/", app.clearCartHandler)
			r.Put("/{itemID}", app.updateCartItemHandler)
			r.Delete("/{itemID}", app.removeCartItemHandler)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.createOrderHandler)
			r.Get("/", app.listMyOrdersHandler)
			r.With(app.RequireAdmin).Get("/all", app.adminListOrdersHandler)
			r.Get("/{orderID}", app.getMyOrderHandler)
			r.Patch("/{orderID}/cancel", app.cancelOrderHandler)
			r.With(app.RequireAdmin).Patch("/{orderID}/status", app.adminUpdateOrderStatusHandler)
		})
	})
	return r
}

// background runs fn outside the request and recovers from its panics.
func (app *application) background(fn func()) {
	app.bg.Add(1)
	go func() {
		defer app.bg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panicked", "error", err)
			}
		}()
		fn()
	}()
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
