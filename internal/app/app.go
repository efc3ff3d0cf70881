package app

import (
	"fmt"
	"time"

	"bookhive/pkg/auth"
	"bookhive/pkg/mail"
	"bookhive/pkg/payment"
	"bookhive/pkg/storage"
	"bookhive/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	TokenTTL      time.Duration

	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	MinioPublicBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	PaymobAPIKey        string
	PaymobIntegrationID string
	PaymobIframeID      string
	PaymobBaseURL       string

	// Injection points for tests.
	Store   store.Store
	OTPs    store.OTPLedger
	Objects storage.ObjectStore
	Mailer  mail.Mailer
	Gateway payment.Gateway
	Tokens  *auth.Tokens
}

// App is the core application service wiring storage, mail, payments, and
// domain logic.
type App struct {
	store         store.Store
	otps          store.OTPLedger
	objects       storage.ObjectStore
	mailer        mail.Mailer
	gateway       payment.Gateway
	tokens        *auth.Tokens
	presignExpiry time.Duration
	now           func() time.Time
}

// New constructs the application, building any dependency not supplied in cfg.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	otps := cfg.OTPs
	if otps == nil {
		var err error
		otps, err = store.NewRedisOTPLedger(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("init otp ledger: %w", err)
		}
	}

	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicBaseURL, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	mailer := cfg.Mailer
	if mailer == nil {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	gateway := cfg.Gateway
	if gateway == nil {
		gateway = payment.NewPaymobClient(cfg.PaymobBaseURL, cfg.PaymobAPIKey, cfg.PaymobIntegrationID, cfg.PaymobIframeID)
	}

	tokens := cfg.Tokens
	if tokens == nil {
		var err error
		tokens, err = auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init tokens: %w", err)
		}
	}

	return &App{
		store:         dataStore,
		otps:          otps,
		objects:       objects,
		mailer:        mailer,
		gateway:       gateway,
		tokens:        tokens,
		presignExpiry: 15 * time.Minute,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Store exposes the underlying store for handlers that resolve users from
// token claims.
func (a *App) Store() store.Store { return a.store }

// Tokens exposes the token verifier for the access gate.
func (a *App) Tokens() *auth.Tokens { return a.tokens }
