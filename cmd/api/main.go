package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/auth"
	"github.com/Pawandasila/Ecom-backend/internal/db"
	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/domain/pricing"
	"github.com/Pawandasila/Ecom-backend/internal/domain/sales"
	"github.com/Pawandasila/Ecom-backend/internal/domain/storage"
	"github.com/Pawandasila/Ecom-backend/internal/events"
	"github.com/Pawandasila/Ecom-backend/internal/mailer"
	"github.com/Pawandasila/Ecom-backend/internal/ratelimiter"
	"github.com/Pawandasila/Ecom-backend/internal/redisx"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil && parsedVal > 0 {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel
	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	return zap.New(core).Sugar(), nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func loadConfig() config {
	return config{
		addr:   getenv("ADDR", ":8080"),
		env:    getenv("ENV", "development"),
		apiURL: getenv("EXTERNAL_URL", "localhost:8080"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(getenvInt("DB_MAX_OPEN_CONNS", 30)),
			maxIdleTime: getenv("DB_MAX_IDLE_TIME", "15m"),
			migrate:     os.Getenv("MIGRATE") == "true",
		},
		mail: mailConfig{
			fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
			smtp: smtpConfig{
				host:     os.Getenv("SMTP_HOST"),
				port:     getenvInt("SMTP_PORT", 587),
				username: os.Getenv("SMTP_USERNAME"),
				password: os.Getenv("SMTP_PASSWORD"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				accessTokenExp:  time.Hour * 24,     // 1 day
				refreshTokenExp: time.Hour * 24 * 7, // 7 days
				iss:             "storefront",
			},
		},
		redis: redisConfig{
			addr:     os.Getenv("REDIS_ADDR"),
			password: os.Getenv("REDIS_PASSWORD"),
			db:       getenvInt("REDIS_DB", 0),
		},
		kafka: kafkaConfig{
			brokers:  splitCSV(os.Getenv("KAFKA_BROKERS")),
			producer: getenv("SERVICE_NAME", "storefront-api"),
		},
		cloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
		orderNumberSalt: getenv("ORDER_NUMBER_SALT", "storefront"),
		rateLimiter:     LoadRateLimiterConfig(),
	}
}

var version = "1.0.0"

//	@title			Storefront API
//	@description	REST backend for an online store: catalog, carts and orders.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description
//	@securityDefinitions.basic	BasicAuth

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := loadConfig()

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("database connection pool established")

	if cfg.db.migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		applied, err := db.Migrate(ctx, pool)
		cancel()
		if err != nil {
			logger.Fatal(err)
		}
		logger.Infow("schema migrated", "files", applied)
	}

	gen, err := orders.NewOrderNumberGenerator(cfg.orderNumberSalt)
	if err != nil {
		logger.Fatal(err)
	}

	//storage
	store := storage.NewContainer(pool, gen)

	var closers []func() error

	// Optional integrations: each is skipped when not configured.
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.kafka.brokers) > 0 {
		producer := events.NewProducer(cfg.kafka.brokers, cfg.kafka.producer, 1024, logger)
		producer.Start()
		publisher = producer
		closers = append(closers, producer.Close)
		logger.Infow("kafka producer started", "brokers", cfg.kafka.brokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are not published")
	}

	var idem sales.Idempotency
	if cfg.redis.addr != "" {
		rdb := redisx.New(cfg.redis.addr, cfg.redis.password, cfg.redis.db)
		idem = redisx.NewIdempotency(rdb)
		closers = append(closers, rdb.Close)
	} else {
		logger.Warn("REDIS_ADDR not set, Idempotency-Key headers are ignored")
	}

	var mail mailer.Client
	if cfg.mail.smtp.host != "" {
		smtp, err := mailer.NewSMTPClient(cfg.mail.smtp.host, cfg.mail.smtp.port,
			cfg.mail.smtp.username, cfg.mail.smtp.password, cfg.mail.fromEmail)
		if err != nil {
			logger.Fatal(err)
		}
		mail = smtp
	} else {
		logger.Warn("SMTP_HOST not set, emails are not sent")
	}

	var images imageStore
	if cfg.cloudinaryURL != "" {
		cld, err := cloudinary.NewFromURL(cfg.cloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		images = &cloudinaryImages{cld: cld, folder: "products"}
	}

	salesService := sales.NewService(sales.Deps{
		UnitOfWork:  store,
		Carts:       store.Sales.Carts,
		Orders:      store.Sales.Orders,
		Catalog:     store.Products,
		Pricing:     pricing.NewEngine(store.Products, 8),
		Users:       store.Users,
		Events:      publisher,
		Mailer:      mail,
		Idempotency: idem,
		Logger:      logger,
	})

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
		cfg.auth.token.refreshTokenExp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		sales:         salesService,
		db:            pool,
		images:        images,
		mailer:        mail,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
			"max_conns":      s.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	runErr := app.run(mux)

	// drain background emails before closing the pool they read from
	salesService.Wait()
	app.bg.Wait()
	var closeErr error
	for _, c := range closers {
		closeErr = multierr.Append(closeErr, c())
	}
	pool.Close()

	if err := multierr.Combine(runErr, closeErr); err != nil {
		logger.Fatal(err)
	}
}
