package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yieldhunter/internal/cache"
	"yieldhunter/internal/chat"
	"yieldhunter/internal/config"
	cronrunner "yieldhunter/internal/cron"
	"yieldhunter/internal/db"
	"yieldhunter/internal/handler"
	"yieldhunter/internal/intent"
	"yieldhunter/internal/logger"
	notification "yieldhunter/internal/notify"
	"yieldhunter/internal/opportunity"
	"yieldhunter/internal/portfolio"
	"yieldhunter/internal/repository"
	gormrepository "yieldhunter/internal/repository/gorm"
	memoryrepository "yieldhunter/internal/repository/memory"
	"yieldhunter/internal/risk"
	"yieldhunter/internal/service"
	"yieldhunter/internal/session"
	"yieldhunter/internal/telegram"
	"yieldhunter/internal/wallet"

	_ "yieldhunter/docs"
)

func main() {
	cfgPath := os.Getenv("YH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("YH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.Repository
	var gormDB *gorm.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "postgres":
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
		gormDB = dbConn.Gorm
	case "", "memory":
		store = memoryrepository.New()
	default:
		logger.Fatal("unknown storage backend", zap.String("backend", cfg.Storage.Backend))
	}

	if cfg.DB.Seed {
		seeded, err := opportunity.SeedIfEmpty(ctx, store, time.Now().UTC())
		if err != nil {
			logger.Warn("seed opportunities failed", zap.Error(err))
		} else if seeded {
			logger.Info("seeded yield opportunities")
		}
	}

	opps := opportunity.NewStore(opportunity.RepositorySource{Repo: store}, logger)
	if _, err := opps.Refresh(ctx); err != nil {
		logger.Warn("initial opportunity refresh failed", zap.Error(err))
	}

	kv, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	if rs, ok := kv.(*cache.RedisStore); ok {
		defer rs.Close()
	}

	prefs := &service.PreferenceService{Repo: store, Logger: logger}
	subs := &service.SubscriptionService{Repo: store, Logger: logger}
	riskMgr := &risk.Manager{Config: cfg.Risk, Repo: store, Logger: logger}

	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg.Telegram.BotToken, logger)
		if err != nil {
			logger.Warn("telegram bot disabled", zap.Error(err))
			bot = nil
		}
	}
	botName := cfg.Telegram.BotUsername
	if bot != nil && bot.Username() != "" {
		botName = bot.Username()
	}
	linker := &telegram.Linker{
		Store:       kv,
		Preferences: prefs,
		BotUsername: botName,
		LinkTTL:     cfg.Telegram.LinkTTL,
		Logger:      logger,
	}

	notifier := &notification.Notifier{
		Preferences: prefs,
		WebhookURL:  cfg.Notify.WebhookURL,
		Webhook:     notification.WebhookSender{HTTP: &http.Client{Timeout: cfg.Notify.Timeout}},
		Timeout:     cfg.Notify.Timeout,
		Logger:      logger,
	}
	if bot != nil {
		notifier.Telegram = bot
	}

	recorder := &service.Recorder{Repo: store, Opportunities: opps, Notifier: notifier, Logger: logger}

	var valuation portfolio.ValuationProvider = portfolio.NewRandomValuation(nil)
	if strings.EqualFold(cfg.Portfolio.Valuation, "snapshots") {
		valuation = &portfolio.SnapshotValuation{Repo: store, Fallback: valuation}
	}
	aggregator := &portfolio.Aggregator{Repo: store, Opportunities: opps, Valuation: valuation, Logger: logger}

	wallets := &wallet.Manager{
		Store:         kv,
		Config:        cfg.Wallet,
		Subscriptions: subs,
		TTL:           cfg.Cache.SessionTTL,
		Logger:        logger,
	}
	chatMgr := &chat.Manager{
		Store:         kv,
		Understanding: intent.New(cfg.LLM, logger),
		Opportunities: opps,
		Logger:        logger,
		HistoryLimit:  cfg.LLM.HistoryLimit,
		TTL:           cfg.Cache.SessionTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORS(cfg.Server.CORSOrigins))
	sessions := &session.Middleware{
		JWT:        session.JWT{Secret: cfg.Session.Secret, TokenTTL: cfg.Session.TTL},
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		Logger:     logger,
	}

	healthHandler := &handler.HealthHandler{DB: gormDB}
	healthHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.Use(sessions.Handler())
	yields := &handler.YieldHandler{Opportunities: opps, Risk: riskMgr}
	yields.Register(engine)
	portfolioHandler := &handler.PortfolioHandler{Aggregator: aggregator, Recorder: recorder}
	portfolioHandler.Register(engine)
	transactions := &handler.TransactionHandler{Recorder: recorder}
	transactions.Register(engine)
	user := &handler.UserHandler{Preferences: prefs, Risk: riskMgr, Telegram: linker}
	user.Register(engine)
	chatHandler := &handler.ChatHandler{Chat: chatMgr, Wallets: wallets}
	chatHandler.Register(engine)
	walletHandler := &handler.WalletHandler{Wallets: wallets, Subscriptions: subs}
	walletHandler.Register(engine)

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("opportunity_refresh", cfg.Cron.OpportunityRefresh, time.Minute, func(ctx context.Context) error {
			_, err := opps.Refresh(ctx)
			return err
		}); err != nil {
			logger.Warn("cron register opportunity refresh failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("portfolio_snapshot", cfg.Cron.PortfolioSnapshot, 5*time.Minute, func(ctx context.Context) error {
			n, err := aggregator.RecordSnapshots(ctx, time.Now().UTC())
			if n > 0 {
				logger.Info("portfolio snapshots recorded", zap.Int("users", n))
			}
			return err
		}); err != nil {
			logger.Warn("cron register portfolio snapshot failed", zap.Error(err))
		}
		if ms, ok := kv.(*cache.MemoryStore); ok {
			if _, err := cronRunner.Add("cache_sweep", "@every 10m", 0, func(context.Context) error {
				if n := ms.Sweep(); n > 0 {
					logger.Debug("expired session entries removed", zap.Int("count", n))
				}
				return nil
			}); err != nil {
				logger.Warn("cron register cache sweep failed", zap.Error(err))
			}
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if bot != nil && cfg.Telegram.Polling {
		go func() {
			if err := bot.Poll(ctx, linker); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("telegram polling stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	notifier.Wait()
}
