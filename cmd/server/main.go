package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
	"github.com/TechnoExperience/texnewweb-sub000/internal/checkout"
	"github.com/TechnoExperience/texnewweb-sub000/internal/config"
	"github.com/TechnoExperience/texnewweb-sub000/internal/db"
	"github.com/TechnoExperience/texnewweb-sub000/internal/events"
	"github.com/TechnoExperience/texnewweb-sub000/internal/fulfillment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/middleware"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment/webhook"
	"github.com/TechnoExperience/texnewweb-sub000/internal/product"
	"github.com/TechnoExperience/texnewweb-sub000/internal/profile"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"
	"github.com/TechnoExperience/texnewweb-sub000/internal/transport"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = listenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	srv, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer srv.publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.limiter.Run(ctx)

	logger.L().Info("checkout service listening", zap.String("port", cfg.AppPort))
	return startServerFunc(ctx, ":"+cfg.AppPort, srv.router)
}

func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

type server struct {
	router    http.Handler
	limiter   *middleware.RateLimiter
	publisher events.Publisher
}

// newServer wires every component against one record store.
func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	store := recordstore.NewPostgres(database)
	m := metrics.New()
	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)

	taxRate, err := cart.ParseTaxRate(cfg.TaxRate)
	if err != nil {
		return nil, err
	}
	valuator, err := cart.NewValuator(taxRate)
	if err != nil {
		return nil, err
	}

	signer, err := payment.NewSigner(cfg.MerchantCode, cfg.MerchantTerminal, cfg.MerchantSecretKey)
	if err != nil {
		return nil, fmt.Errorf("REDSYS_SECRET_KEY: %w", err)
	}

	orderRepo := order.NewRepository(store)
	orderSvc := order.NewService(orderRepo, publisher)
	writer := order.NewWriter(orderRepo, valuator, publisher, m)

	dispatcher := fulfillment.NewDispatcher(
		product.NewRepository(store),
		fulfillment.NewHTTPClient(cfg.FulfillmentTimeout),
		orderRepo,
		cfg.FulfillmentConcurrency,
		m,
	)

	localBackend := payment.NewSigningService(orderSvc, signer, payment.SigningConfig{
		GatewayURL: cfg.GatewayURL,
		NotifyURL:  cfg.MerchantNotifyURL,
		SuccessURL: cfg.PaymentSuccessURL,
		FailureURL: cfg.PaymentFailureURL,
	})
	redirectBackend := localBackend
	if cfg.PaymentBackendURL != "" {
		redirectBackend = payment.NewHTTPBackend(cfg.PaymentBackendURL)
	}

	flow := checkout.NewFlow(writer, dispatcher, payment.NewRedirectBuilder(redirectBackend, m), m, cfg.Currency)
	notify := webhook.NewWebhookHandler(orderSvc, signer, payment.NewRepository(store), m)
	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	router := setupRouter(cfg, m, limiter, transport.Handlers{
		Checkout: &transport.CheckoutHandler{
			Valuator:      valuator,
			Profiles:      profile.NewService(profile.NewRepository(store)),
			Flow:          flow,
			Currency:      cfg.Currency,
			StorefrontURL: cfg.StorefrontURL,
		},
		Orders: &transport.OrderHandler{Orders: orderSvc},
		Payments: &transport.PaymentHandler{
			Backend: localBackend,
			Notify:  notify.NotifyHandler,
		},
	})

	return &server{router: router, limiter: limiter, publisher: publisher}, nil
}

func setupRouter(cfg *config.Config, m *metrics.Metrics, limiter *middleware.RateLimiter, h transport.Handlers) http.Handler {
	return transport.NewRouter(transport.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m,
		Limiter:        limiter,
	}, h)
}
