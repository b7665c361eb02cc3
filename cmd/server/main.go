package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/config"
	"github.com/palemoky/old-maid/internal/logger"
	"github.com/palemoky/old-maid/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", ".env 文件路径")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	usedDefault := false
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = config.Default()
		usedDefault = true
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	if usedDefault {
		log.WithField("path", configPath).Warn("未找到配置文件，使用默认配置")
	}

	rdb, err := connectRedis(cfg.Redis, log)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, rdb, log)
	if err != nil {
		return fmt.Errorf("创建服务器失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("🃏 抽鬼牌服务器启动中...")
	if err := srv.Start(ctx); err != nil {
		return err
	}

	log.Info("正在关闭服务器...")
	srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
	return nil
}

// connectRedis 未配置地址时返回 nil，表示不使用 Redis
func connectRedis(cfg config.RedisConfig, log logrus.FieldLogger) (*redis.Client, error) {
	if !cfg.Enabled() {
		log.Info("未配置 Redis，房间不镜像，统计不记录")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}
	log.WithField("addr", cfg.Addr).Info("✅ Redis 已连接")
	return rdb, nil
}
