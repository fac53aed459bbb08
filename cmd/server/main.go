package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/config"
	"bookstore/internal/database"
	"bookstore/internal/router"
	"bookstore/internal/service"
	"bookstore/internal/ws"
	"bookstore/pkg/cloudinary"
	"bookstore/pkg/pesapal"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "bookstore",
		Short:        "Bookstore payment service (Pesapal checkout and reconciliation)",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json or .env); environment variables take precedence")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(registerIPNCmd())
	rootCmd.AddCommand(orphansCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.Pesapal.ConsumerKey == "" || cfg.Pesapal.ConsumerSecret == "" {
		log.Printf("[PESAPAL] consumer key/secret not set; checkout requests will fail until configured")
	}

	deps := router.Deps{
		Gateway: newPesapalClient(cfg),
		Events:  service.NopPublisher{},
		Hub:     ws.NewPaymentHub(),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := service.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer kp.Close()
		deps.Events = kp
		log.Printf("[KAFKA] publishing payment events to %s", cfg.Kafka.Topic)
	} else {
		log.Printf("[KAFKA] disabled: set KAFKA_BROKERS to publish payment events")
	}
	if cfg.Cloudinary.Enabled() {
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return fmt.Errorf("cloudinary: %w", err)
		}
		deps.Signer = cloud
	} else {
		log.Printf("[CLOUDINARY] disabled: downloads will return a configuration error")
	}

	engine := router.Setup(cfg, db, deps)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	fmt.Println("server stopped")
	return nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return db, nil
}

func newPesapalClient(cfg *config.Config) *pesapal.Client {
	return pesapal.NewClient(pesapal.Options{
		Live:           cfg.Pesapal.IsLive(),
		ConsumerKey:    cfg.Pesapal.ConsumerKey,
		ConsumerSecret: cfg.Pesapal.ConsumerSecret,
		IPNID:          cfg.Pesapal.IPNID,
		Timeout:        cfg.Pesapal.Timeout,
		TokenTTL:       cfg.Pesapal.TokenTTL,
	})
}
