package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-credential-api/internal/application/account"
	"github.com/go-credential-api/internal/application/credential"
	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
	"github.com/go-credential-api/internal/infrastructure/smtp"
	"github.com/go-credential-api/internal/infrastructure/sns"
	"github.com/go-credential-api/internal/infrastructure/stats"
	"github.com/go-credential-api/internal/infrastructure/vccs"
	"github.com/go-credential-api/internal/pkg/logging"
	"github.com/go-credential-api/internal/pkg/validate"
	transporthttp "github.com/go-credential-api/internal/transport/http"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.AppEnv)
	validate.SetPasswordMinLength(cfg.PasswordMinLength)
	validate.SetPasswordMinEntropy(cfg.PasswordMinEntropy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications)

	verifier, err := newVerifier(cfg)
	if err != nil {
		log.Fatalf("verification service: %v", err)
	}

	jwtProvider, err := newJWTProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	relay, err := sns.NewRelay(ctx, cfg)
	if err != nil {
		log.Printf("WARN: SNS relay not available, sync requests are only logged: %v", err)
		relay = sns.NoopRelay{}
	}

	var counter stats.Counter = stats.Noop{Logger: logger, Prefix: cfg.StatsPrefix}
	mp, err := stats.NewMeterProvider(ctx, cfg)
	if err != nil {
		log.Printf("WARN: metrics exporter not available: %v", err)
	} else if mp != nil {
		counter = stats.NewMeter(mp, cfg.StatsPrefix, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mp.Shutdown(sctx)
		}()
	}

	manager := credential.NewManager(credential.ManagerDeps{
		Verifier: verifier,
		Logger:   logger.With("component", "credentials"),
	})

	// Mail stays off without an SMTP host. Recovery is only mounted with a mailer.
	var mailer smtp.Mailer
	if cfg.SMTPHost != "" {
		mailer = smtp.NewMailer(cfg)
	} else {
		log.Println("WARN: SMTP_HOST not set, password notices and recovery are disabled")
	}

	accounts := account.NewService(account.ServiceDeps{
		UserRepo:    userRepo,
		Credentials: manager,
		Relay:       relay,
		Mailer:      mailer,
		Stats:       counter,
		JWTProvider: jwtProvider,
		Logger:      logger,
	})

	deps := &transporthttp.Deps{
		Accounts:    accounts,
		Health:      userRepo,
		JWTProvider: jwtProvider,
	}
	if mailer != nil {
		deps.Recovery = recovery.NewService(recovery.ServiceDeps{
			UserRepo:    userRepo,
			Codes:       verificationRepo,
			Accounts:    accounts,
			Mailer:      mailer,
			Stats:       counter,
			Logger:      logger.With("component", "recovery"),
			CodeTTL:     cfg.RecoveryCodeTTL,
			MaxAttempts: cfg.RecoveryMaxAttempts,
		})
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// newVerifier returns the HTTP verification service client, or the in-process
// one in development when no URL is configured.
func newVerifier(cfg *config.Config) (credential.Verifier, error) {
	if cfg.VCCSURL != "" {
		return vccs.NewClient(cfg.VCCSURL, cfg.VCCSTimeout), nil
	}
	if !cfg.IsDevelopment() {
		return nil, fmt.Errorf("VCCS_URL is required when APP_ENV=%s", cfg.AppEnv)
	}
	slog.Warn("VCCS_URL not set, using in-process verification service; credentials are lost on restart")
	return vccs.NewMemory(bcrypt.DefaultCost), nil
}

// newJWTProvider loads the configured key pair. Development falls back to an
// ephemeral key so the service starts without key files.
func newJWTProvider(cfg *config.Config) (*jwtinfra.Provider, error) {
	p, err := jwtinfra.NewProvider(cfg)
	if err == nil || !cfg.IsDevelopment() {
		return p, err
	}
	log.Printf("WARN: JWT keys not available, using an ephemeral key: %v", err)
	key, kerr := rsa.GenerateKey(rand.Reader, 2048)
	if kerr != nil {
		return nil, kerr
	}
	return jwtinfra.NewProviderFromKeys(key, &key.PublicKey, cfg.JWTExpiry), nil
}
