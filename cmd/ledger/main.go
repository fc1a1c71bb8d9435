package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/db"
	"github.com/Fi44er/roi_ledger/internal/api"
	"github.com/Fi44er/roi_ledger/internal/bot"
	"github.com/Fi44er/roi_ledger/internal/lock"
	"github.com/Fi44er/roi_ledger/internal/report"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/internal/wallet"
	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", ".env", "path to the .env config file")
	reportDay := flag.String("report", "", "write the daily balance report for YYYY-MM-DD and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	logger := utils.InitLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.ConnectDb(cfg.DB_URL, logger)
	if err != nil {
		logger.Fatal(err)
	}

	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	locker := lock.Locker(lock.NewMemoryLocker())
	if cfg.RedisAddr != "" {
		rdb, err := lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Fatal("Failed to connect to redis: ", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	} else {
		logger.Warn("REDIS_ADDR is not set, withdrawal locks are process-local")
	}

	deriver, err := wallet.NewDeriver(cfg.MasterKeySeed, cfg.BTCNetwork)
	if err != nil {
		logger.Fatal("Failed to create address deriver: ", err)
	}

	repo := repository.NewRepository(database, logger)
	svc := service.NewService(repo, locker, deriver, &cfg, logger)
	if _, err := svc.EnsureSystemWallet(ctx); err != nil {
		logger.Fatal("Failed to create system wallet: ", err)
	}

	if *reportDay != "" {
		if err := runReport(ctx, &cfg, svc, logger, *reportDay); err != nil {
			logger.Fatal(err)
		}
		return
	}

	g, ctx := errgroup.WithContext(ctx)

	var apiServer *api.Server
	if cfg.JWTSecret != "" {
		apiServer = api.NewServer(svc, cfg.JWTSecret, logger)
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           apiServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("HTTP API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		logger.Warn("JWT_SECRET is not set, HTTP API disabled")
	}

	if cfg.TelegramBotToken != "" {
		telegramBot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("Failed to create bot API: ", err)
		}
		b := bot.NewBot(telegramBot, svc, logger, &cfg)
		svc.SetWithdrawalNotifier(b.NotifyAdminAboutWithdrawal)
		if apiServer != nil {
			b.SetTokenIssuer(apiServer.Token)
		}
		g.Go(func() error { return b.Start(ctx) })
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, bot disabled")
	}

	if err := g.Wait(); err != nil {
		logger.Fatal(err)
	}
	logger.Info("Shutdown complete")
}

func runReport(ctx context.Context, cfg *config.Config, svc *service.Service, logger *utils.Logger, rawDay string) error {
	day, err := utils.ParseDay(rawDay)
	if err != nil {
		return err
	}

	var blob report.BlobWriter = report.FileWriter{Dir: "."}
	if cfg.S3Bucket != "" {
		blob, err = report.NewS3Writer(ctx, report.S3Config{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			Bucket:         cfg.S3Bucket,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return err
		}
	}

	path, err := report.NewReporter(svc, blob, logger).Run(ctx, day)
	if err != nil {
		return err
	}
	logger.Infof("Balance report written to %s", path)
	return nil
}
