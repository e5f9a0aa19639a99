package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"account_listing_bot/internal/bot"
	"account_listing_bot/internal/config"
	"account_listing_bot/internal/controller"
	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/pricing"
	"account_listing_bot/internal/repository"
	"account_listing_bot/internal/router"
	"account_listing_bot/internal/service"
	"account_listing_bot/internal/session"
	"account_listing_bot/internal/task"
	"account_listing_bot/pkg/database"
	"account_listing_bot/pkg/telegram"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动机器人（轮询或 webhook）和管理 API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Bot.Token == "" {
				return errors.New("bot.token 未配置（或设置 LISTINGBOT_BOT_TOKEN）")
			}

			// 1. 初始化数据库
			db, err := initDatabase(cfg)
			if err != nil {
				return err
			}

			// 2. 初始化依赖
			deps := initDependencies(cfg, db, log)

			// 3. 启动定时任务
			if err := deps.Tasks.Start(); err != nil {
				return err
			}
			defer deps.Tasks.Stop()

			// 4. 启动服务
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, deps, log)
		},
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB       *gorm.DB
	Repos    *Repositories
	Services *Services
	Client   *telegram.Client
	Queue    *bot.UpdateQueue
	Tasks    *task.TaskManager
	Engine   *gin.Engine
}

// Repositories 仓库集合
type Repositories struct {
	Listing repository.ListingRepository
	User    repository.UserRepository
}

// Services 服务集合
type Services struct {
	Listing *service.ListingService
	Form    *service.FormService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg.Database.Driver, cfg.Database.DSN, database.Options{
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	},
		&model.Listing{}, &model.BotUser{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Listing: repository.NewListingRepository(db),
		User:    repository.NewUserRepository(db),
	}

	// -------- Telegram --------
	client := telegram.NewClient(cfg.Bot.Token, cfg.Bot.APIBaseURL, cfg.Bot.RequestTimeout, log.Named("telegram"))
	deliverer := bot.NewTelegramDeliverer(client, log.Named("deliver"))
	membership := bot.NewChannelMembership(client, cfg.Bot.ChannelUsername, cfg.Bot.MembershipTTL)

	// -------- 业务服务 --------
	services := &Services{}
	services.Listing = service.NewListingService(repos.Listing, repos.User, deliverer, service.ListingConfig{
		AdminUserID: cfg.Bot.AdminUserID,
		Privileged:  cfg.Privileged(),
		TTL:         cfg.ListingTTL(),
	}, log.Named("listing"))

	cooldown := middleware.NewCooldown()
	services.Form = service.NewFormService(
		session.NewStore(),
		pricing.NewEstimator(cfg.PricingConfig()),
		services.Listing,
		membership,
		cooldown,
		service.FormConfig{
			Limits:           cfg.FormLimits(),
			Directory:        cfg.Directory(),
			EmailTypes:       toOptions(cfg.EmailType),
			WebAppTypes:      toOptions(cfg.WebApp),
			ChannelUsername:  cfg.Bot.ChannelUsername,
			PurchaseLinkBase: cfg.Listing.PurchaseLinkBase,
			EstimateCooldown: cfg.Cooldowns.Estimate,
			SubmitCooldown:   cfg.Cooldowns.Submit,
		},
		log.Named("form"),
	)

	// -------- 分发 --------
	dispatcher := bot.NewDispatcher(client, services.Form, log.Named("dispatch"))
	queue := bot.NewUpdateQueue(cfg.Bot.QueueSize, dispatcher, log.Named("queue"))

	// -------- HTTP --------
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")))

	var webhookCtl *controller.WebhookController
	if cfg.Bot.Mode == config.ModeWebhook {
		webhookCtl = controller.NewWebhookController(queue, cfg.Bot.WebhookSecret, log.Named("webhook"))
	}
	router.InitRoutes(engine, webhookCtl, controller.NewListingController(services.Listing), router.Options{
		JWT:            cfg.JWT(),
		AdminUserID:    cfg.Bot.AdminUserID,
		Limiter:        cooldown,
		ReviewInterval: time.Second,
	})

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(services.Listing, &task.TaskManagerConfig{
		ExpiryEnabled: true,
		ExpirySpec:    cfg.Listing.ExpirySpec,
	}, log.Named("task"))

	return &Dependencies{
		DB:       db,
		Repos:    repos,
		Services: services,
		Client:   client,
		Queue:    queue,
		Tasks:    tasks,
		Engine:   engine,
	}
}

func toOptions(in []config.OptionConfig) []service.Option {
	out := make([]service.Option, 0, len(in))
	for _, o := range in {
		out = append(out, service.Option{Code: o.Code, Name: o.Name})
	}
	return out
}

// ==================== 服务启动 ====================

// run 并发运行 HTTP 服务、更新队列和（轮询模式下）长轮询，任一失败即整体退出
func run(ctx context.Context, cfg *config.Config, deps *Dependencies, log *zap.Logger) error {
	if err := prepareUpdates(ctx, cfg, deps.Client); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           deps.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("服务启动", zap.String("addr", srv.Addr), zap.String("mode", cfg.Bot.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("正在关闭服务...")

		// 优雅关闭，最多等待 30 秒
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return deps.Queue.Run(ctx)
	})
	if cfg.Bot.Mode == config.ModePolling {
		poller := bot.NewPoller(deps.Client, deps.Queue, time.Duration(cfg.Bot.PollTimeout)*time.Second, log.Named("poller"))
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	err := g.Wait()
	log.Info("服务已退出")
	return err
}

// prepareUpdates webhook 模式登记地址；轮询模式先删除 webhook，否则 getUpdates 会被拒绝
func prepareUpdates(ctx context.Context, cfg *config.Config, client *telegram.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if cfg.Bot.Mode == config.ModeWebhook {
		if cfg.Bot.WebhookURL == "" {
			return errors.New("webhook 模式需要配置 bot.webhook_url")
		}
		if err := client.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
			return fmt.Errorf("setWebhook 失败: %w", err)
		}
		return nil
	}
	if err := client.DeleteWebhook(ctx); err != nil {
		return fmt.Errorf("deleteWebhook 失败: %w", err)
	}
	return nil
}
