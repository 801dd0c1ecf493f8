package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"outreachpass/config"
	_ "outreachpass/docs"
	"outreachpass/internal/adapters/applepass"
	"outreachpass/internal/adapters/correlation"
	"outreachpass/internal/adapters/email"
	"outreachpass/internal/adapters/googlepass"
	"outreachpass/internal/adapters/qr"
	s3store "outreachpass/internal/adapters/s3"
	httpdelivery "outreachpass/internal/delivery/http"
	"outreachpass/internal/domain"
	"outreachpass/internal/repository/postgres"
	"outreachpass/internal/services"
)

// @title OutreachPass API
// @version 1.0
// @description Contact pass issuance pipeline: cards, QR codes, wallet passes, and tracked notification emails.
// @BasePath /
func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	// Repositories
	attendeeRepo := postgres.NewAttendeeRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	cardRepo := postgres.NewCardRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	walletPassRepo := postgres.NewWalletPassRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)

	// Message contexts back email tracking. Production binds the shared
	// Postgres store so any instance can attribute a callback; elsewhere a
	// process-local store is enough.
	var contextStore domain.MessageContextStore = correlation.NewMemoryStore(7 * 24 * time.Hour)
	if cfg.Environment == "production" {
		contextStore = postgres.NewMessageContextRepository(db)
	}

	// Adapters
	store := s3store.NewArtifactStore(s3store.StoreConfig{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Bucket:          cfg.S3AssetsBucket,
	})
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "error", err)
		os.Exit(1)
	}

	// Services
	analytics := services.NewAnalyticsRecorder(analyticsRepo, logger)
	brands := services.NewBrandResolver(cfg.BrandDomains, cfg.DefaultBrandKey)
	issuer := services.NewCardIssuer(cardRepo, qr.NewGenerator(0), store, brands, analytics, logger)
	builders := buildPassBuilders(cfg, store, brands, logger)
	notifier := services.NewPassNotifier(
		mailer,
		email.NewTemplateRenderer(),
		contextStore,
		store,
		analytics,
		cfg.TrackingBaseURL,
		logger,
	)
	worker := services.NewPassWorker(
		jobRepo, attendeeRepo, eventRepo, cardRepo, walletPassRepo,
		issuer, builders, notifier,
		cfg.Worker.BatchSize, cfg.Worker.Lease, logger,
	)
	tracking := services.NewTrackingService(contextStore, analytics, logger)

	// Every tracked link the notifier mints points at a brand domain or the
	// API base, so the click redirect only honors those hosts.
	redirectBases := []string{cfg.TrackingBaseURL}
	for _, base := range cfg.BrandDomains {
		redirectBases = append(redirectBases, base)
	}

	// HTTP
	router := httpdelivery.NewRouter(
		httpdelivery.NewJobController(jobRepo, worker),
		httpdelivery.NewPassController(cardRepo, walletPassRepo, store, logger),
		httpdelivery.NewTrackingController(tracking, redirectBases),
	)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go worker.Run(ctx, cfg.Worker.PollInterval)

	go func() {
		logger.Info("server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

// buildPassBuilders assembles the wallet platform set from configuration.
// Unconfigured platforms still get a builder; they report Skipped outcomes
// so the worker's platform loop stays uniform.
func buildPassBuilders(cfg *config.Config, store domain.ArtifactStore, brands *services.BrandResolver, logger *slog.Logger) []domain.PassBuilder {
	var appleArchiver services.PassArchiver
	if cfg.AppleWallet.TeamID != "" && cfg.AppleWallet.PassTypeID != "" {
		builder, err := applepass.NewBuilder(applepass.Config{
			TeamID:           cfg.AppleWallet.TeamID,
			PassTypeID:       cfg.AppleWallet.PassTypeID,
			OrganizationName: cfg.AppleWallet.OrganizationName,
			CertPath:         cfg.AppleWallet.CertPath,
			KeyPath:          cfg.AppleWallet.KeyPath,
			WWDRCertPath:     cfg.AppleWallet.WWDRCertPath,
		})
		if err != nil {
			logger.Error("apple wallet disabled: failed to load signing material", "error", err)
		} else {
			appleArchiver = builder
		}
	}
	apple := services.NewApplePassBuilder(appleArchiver, store, cfg.AppleWallet.PassTypeID, cfg.TrackingBaseURL, logger)

	var googleClient services.WalletObjectsClient
	var googleSigner services.SaveURLSigner
	if cfg.GoogleWallet.IssuerID != "" && cfg.GoogleWallet.ServiceAccountFile != "" {
		account, err := googlepass.LoadServiceAccount(cfg.GoogleWallet.ServiceAccountFile)
		if err != nil {
			logger.Error("google wallet disabled: failed to load service account", "error", err)
		} else {
			googleClient = googlepass.NewClient(account, nil)
			googleSigner = googlepass.NewSaveLinkSigner(account)
		}
	}
	google := services.NewGooglePassBuilder(
		googleClient, googleSigner,
		cfg.GoogleWallet.IssuerID, cfg.GoogleWallet.ClassSuffix,
		cfg.EmailFromName, brands, logger,
	)

	return []domain.PassBuilder{apple, google}
}
