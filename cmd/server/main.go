package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/classmint/classmint-server/internal/config"
	"github.com/classmint/classmint-server/internal/database"
	"github.com/classmint/classmint-server/internal/handler"
	"github.com/classmint/classmint-server/internal/queue"
	"github.com/classmint/classmint-server/internal/repository"
	"github.com/classmint/classmint-server/internal/router"
	"github.com/classmint/classmint-server/internal/service"
	"github.com/classmint/classmint-server/internal/signer"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		logger.Fatal("seed shop items", zap.Error(err))
	}

	rdb := config.NewRedisClient() // nil disables caching and rate limiting
	if rdb == nil {
		logger.Warn("redis unavailable, cache and rate limiting disabled")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	tokens := repository.NewTokenRepo(db)
	claims := repository.NewClaimRepo(db)
	balances := repository.NewBalanceRepo(db)
	items := repository.NewItemRepo(db)
	purchases := repository.NewPurchaseRepo(db)
	ledger := repository.NewLedgerRepo(db)

	// Audit the chain once on boot.  A broken chain is terminal for
	// trust in the history but not for serving traffic, so it is
	// reported loudly rather than fatally.
	if res, err := ledger.VerifyChain(ctx); err != nil {
		logger.Fatal("verify ledger", zap.Error(err))
	} else if err := res.Err(); err != nil {
		logger.Error("ledger integrity check failed", zap.Error(err))
	} else {
		logger.Info("ledger verified", zap.Int64("blocks", res.Length))
	}

	// Services
	sgn := signer.New(cfg.AppSecret)
	tokenSvc := service.NewTokenService(sgn, tokens)
	walletSvc := service.NewWalletService(db, sgn, tokens, claims, balances, items, purchases, ledger)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, sessions)
	tokenH := handler.NewTokenHandler(tokenSvc, tokens)
	walletH := handler.NewWalletHandler(walletSvc, balances, claims, users)
	shopH := handler.NewShopHandler(walletSvc, items, purchases, users)
	ledgerH := handler.NewLedgerHandler(ledger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, walletH, shopH, ledgerH, rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterTeacher(e, tokenH, walletH, shopH, cfg.JWTSecret)
	router.RegisterStudent(e, walletH, shopH, cfg.JWTSecret, rdb)

	// Background activity logger fed by the broker; it reconnects on
	// its own and never stops the server.
	go queue.StartActivityConsumer()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
