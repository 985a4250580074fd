package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/api/handler"
	"github.com/galadima-cyber/eRecord/internal/api/router"
	"github.com/galadima-cyber/eRecord/internal/repository"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/database"
	"github.com/galadima-cyber/eRecord/pkg/ipgeo"
	"github.com/galadima-cyber/eRecord/pkg/jwt"
	applogger "github.com/galadima-cyber/eRecord/pkg/logger"
	"github.com/galadima-cyber/eRecord/pkg/metrics"
	"github.com/galadima-cyber/eRecord/pkg/redis"
)

func main() {
	// 1. 加载配置（EREC_CONFIG 可指定配置文件路径）
	cfg, err := config.Load(os.Getenv("EREC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Int("default_radius_meters", cfg.Attendance.DefaultRadiusMeters),
		zap.Duration("fixed_window", cfg.Attendance.FixedWindow),
		zap.Bool("require_enrollment", cfg.Attendance.RequireEnrollment),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单不可用，限流降级为本地令牌桶", zap.Error(err))
		rdb = nil
	}

	// 5. JWT / IP 定位 / 指标
	jwtMgr := jwt.NewManager(&cfg.Auth)
	m := metrics.New()

	deps := service.Deps{JWT: jwtMgr, Metrics: m}
	if rdb != nil {
		deps.Blacklist = rdb
	}
	if geoClient := ipgeo.NewClient(&cfg.IPGeo, logger); geoClient != nil {
		deps.Locator = geoClient
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)

	// 6.1 首个管理员（bootstrap.admin_password 非空时）
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.User.EnsureAdmin(bootCtx, &cfg.Bootstrap); err != nil {
		bootCancel()
		logger.Fatal("初始化管理员失败", zap.Error(err))
	}
	bootCancel()
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, m, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
