package http

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"plantbid.kr/app/internal/http/handlers"
	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/mailer"
	"plantbid.kr/app/internal/modules/notify"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/modules/users"
	"plantbid.kr/app/internal/storage"
)

// NewRouter wires the whole HTTP surface. All provider clients and
// services are constructed here and injected down; nothing holds
// first-call-wins module state.
func NewRouter(logger *slog.Logger, db *gorm.DB, cfg payments.Config, archive storage.Storage) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))

	sessCfg := middleware.SessionCfg{
		DB:         db,
		CookieName: "plantbid_session",
		Secure:     os.Getenv("COOKIE_SECURE") != "",
		TTL:        30 * 24 * time.Hour,
	}
	r.Use(middleware.SessionMiddleware(sessCfg))

	store := payments.NewGormStore(db)
	portone := payments.NewPortOneClient(cfg, logger)
	inicis := payments.NewInicisClient(cfg, logger)

	prepareSv := payments.NewPrepareService(cfg, portone, store, logger)
	cancelSv := payments.NewCancelService(cfg, portone, store, logger)
	cancelSv.SetAudit(payments.NewAuditLog(db, logger))
	if archive != nil {
		cancelSv.SetArchive(archive)
	}
	webhookSv := payments.NewWebhookService(db, portone)
	webhookSv.SetLogger(logger)
	userSv := users.NewService(db)

	// Mail is optional: without an SMTP host or mail driver the payment
	// flows simply run without customer notifications.
	if os.Getenv("SMTP_HOST") != "" || os.Getenv("MAIL_DRIVER") != "" {
		notifySv := notify.New(mailer.FromEnv(), userSv, logger)
		cancelSv.SetNotifier(notifySv)
		webhookSv.SetNotifier(notifySv)
	}

	authH := handlers.NewAuthHandler(logger, userSv, sessCfg)
	payH := handlers.NewPaymentHandler(logger, prepareSv, store, os.Getenv("BASE_URL"))
	returnH := handlers.NewReturnHandler(logger, store)
	cancelH := handlers.NewCancelHandler(logger, cancelSv, inicis, store)
	webhookH := handlers.NewWebhookHandler(logger, webhookSv)
	healthH := handlers.NewHealthHandler(portone)

	api := r.Group("/api")
	api.GET("/health", healthH.Get)

	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", authH.Logout)

	pay := api.Group("/payments")
	pay.Use(middleware.RateLimit(rate.Limit(5), 10))
	pay.POST("/portone-prepare-simple", middleware.RequireAuth(), payH.PrepareSimple)
	pay.POST("/portone-prepare", middleware.RequireAuth(), payH.Prepare)
	pay.GET("/portone-success", returnH.Success)
	pay.GET("/portone-fail", returnH.Fail)
	pay.POST("/portone-webhook", webhookH.HandlePortone)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/payments/:orderId/cancel", cancelH.Cancel)
	admin.POST("/payments/inicis-cancel", cancelH.InicisCancel)

	return r
}
