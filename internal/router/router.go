package router

import (
	"net/http"

	"bookstore/config"
	"bookstore/internal/handler"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/service"
	"bookstore/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators the routes share.
type Deps struct {
	Gateway service.Gateway
	Events  service.EventPublisher
	Signer  service.URLSigner // nil disables downloads
	Hub     *ws.PaymentHub
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))

	if deps.Hub == nil {
		deps.Hub = ws.NewPaymentHub()
	}

	// Repositories
	bookRepo := repository.NewBookRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	orderSvc := service.NewOrderService(bookRepo, paymentRepo, deps.Gateway, deps.Events, cfg.Pesapal.Currency)
	reconcileSvc := service.NewReconcileService(paymentRepo, notificationRepo, deps.Gateway, deps.Events, deps.Hub)
	downloadSvc := service.NewDownloadService(paymentRepo, bookRepo, deps.Signer)

	// Handlers
	pesapalHandler := handler.NewPesapalHandler(cfg, orderSvc, reconcileSvc, downloadSvc)
	session := middleware.SessionRequired(&cfg.JWT)

	r.GET("/healthz", handler.Health(db))
	r.GET("/ws/payments", ws.UpgradePaymentWS(deps.Hub))

	pesapal := r.Group("/api/pesapal")
	{
		pesapal.POST("/create-order", session, pesapalHandler.CreateOrder)
		pesapal.GET("/transaction-status", pesapalHandler.TransactionStatus)
		pesapal.POST("/verify", session, pesapalHandler.Verify)
		pesapal.GET("/ipn", pesapalHandler.IPN)
		pesapal.GET("/download", session, pesapalHandler.Download)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})
	return r
}
