package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Lorent-Bloom/lorentbloom/backend/checkout"
	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/handler"
	"github.com/Lorent-Bloom/lorentbloom/backend/middleware"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
	"github.com/Lorent-Bloom/lorentbloom/backend/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "lorentbloom",
		Short:         "Rental checkout and contract signing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to read .env: %w", err)
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}

			logger.Init(&logger.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			})
			slog.Info("configuration loaded successfully", "path", configPath)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	loaded := func() *config.Config { return cfg }
	root.AddCommand(newServeCommand(loaded), newContractCommand(loaded))
	return root
}

func newServeCommand(loaded func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(commandContext(cmd), loaded())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		return err
	}
	defer a.close()

	backend, err := a.sessionBackend(ctx)
	if err != nil {
		slog.Error("failed to initialize checkout sessions", "error", err)
		return err
	}
	sessions := checkout.NewSessions(backend)

	commerce := service.NewCommerceClient(&cfg.Commerce, cfg.CommerceTimeout())
	carts := service.NewCartGateway(commerce)
	customers := service.NewCustomerGateway(commerce)
	conversations := service.NewConversationRepository(a.db)
	orch := checkout.NewOrchestrator(carts, customers, a.signer, conversations)

	authHandler := handler.NewAuthHandler(&cfg.Auth, customers, sessions)
	cartHandler := handler.NewCartHandler(carts, &cfg.Auth)
	checkoutHandler := handler.NewCheckoutHandler(orch, sessions, &cfg.Auth)
	contractHandler := handler.NewContractHandler(a.signer, &cfg.Auth)
	conversationHandler := handler.NewConversationHandler(conversations, &cfg.Auth)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(noCacheMiddleware())
	router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/auth/logout", authHandler.Logout)

		protected.GET("/cart", cartHandler.Get)
		protected.POST("/cart/items", cartHandler.AddItem)
		protected.PUT("/cart/items/:uid", cartHandler.UpdateItem)
		protected.DELETE("/cart/items/:uid", cartHandler.RemoveItem)

		protected.GET("/checkout", checkoutHandler.Get)
		protected.POST("/checkout/addresses", checkoutHandler.ConfirmAddresses)
		protected.POST("/checkout/addresses/new", checkoutHandler.CreateAddress)
		protected.POST("/checkout/payment", checkoutHandler.ConfirmPayment)
		protected.POST("/checkout/preview", checkoutHandler.Preview)
		protected.POST("/checkout/signature", checkoutHandler.Sign)
		protected.POST("/checkout/place", checkoutHandler.PlaceOrder)

		protected.GET("/orders/:number/contract", contractHandler.Get)
		protected.POST("/orders/:number/contract/signatures", contractHandler.Sign)
		protected.POST("/orders/:number/contract/finalize", contractHandler.Finalize)

		protected.GET("/orders/:number/conversation", conversationHandler.Get)
		protected.POST("/orders/:number/conversation/messages", conversationHandler.PostMessage)
		protected.POST("/orders/:number/conversation/read", conversationHandler.MarkRead)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		slog.Error("failed to start server", "error", err)
		return err
	case <-quit:
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return err
	}

	slog.Info("server exited gracefully")
	return nil
}

// noCacheMiddleware keeps API responses out of shared caches; they carry
// presigned links and session state.
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
