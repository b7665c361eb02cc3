package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/old-maid/internal/config"
	"github.com/palemoky/old-maid/internal/game/room"
	"github.com/palemoky/old-maid/internal/server/handler"
	"github.com/palemoky/old-maid/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	logger      logrus.FieldLogger
	redis       *redis.Client
	leaderboard *storage.LeaderboardManager
	roomManager *room.RoomManager
	handler     *handler.Handler
	upgrader    websocket.Upgrader
	clients     map[string]*Client
	clientsMu   sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	ipFilter       *IPFilter
	adminHash      []byte // 为空表示创建房间不需要口令

	// 连接控制
	maxConnections int
	semaphore      chan struct{}

	shuttingDown atomic.Bool
	httpServer   *http.Server
}

// NewServer 创建服务器实例，rdb 为 nil 时不镜像房间也不记录统计
func NewServer(cfg *config.Config, rdb *redis.Client, logger logrus.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	adminHash, err := adminPasswordHash(cfg.Security)
	if err != nil {
		return nil, err
	}
	blocked, err := cfg.Security.BlockedPrefixes()
	if err != nil {
		return nil, fmt.Errorf("blocked_ips: %w", err)
	}
	trusted, err := cfg.Security.TrustedProxyPrefixes()
	if err != nil {
		return nil, fmt.Errorf("trusted_proxies: %w", err)
	}

	s := &Server{
		config:    cfg,
		logger:    logger,
		redis:     rdb,
		clients:   make(map[string]*Client),
		adminHash: adminHash,
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		ipFilter:       NewIPFilter(blocked, trusted),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}

	var store room.RoomStore
	deps := handler.HandlerDeps{Server: s, Logger: logger}
	if rdb != nil {
		store = storage.NewRedisStore(rdb)
		s.leaderboard = storage.NewLeaderboardManager(rdb)
		deps.Leaderboard = s.leaderboard
	}

	s.roomManager = room.NewRoomManager(store, room.Options{
		MaxPlayers:      cfg.Game.MaxPlayers,
		MinPlayers:      cfg.Game.MinPlayers,
		Deck:            cfg.Deck.CardConfig(),
		LogCapacity:     cfg.Game.LogCapacity,
		SnapshotLogSize: cfg.Game.SnapshotLogSize,
		Logger:          logger,
	}, cfg.Game.RoomTimeoutDuration(), logger)

	deps.RoomManager = s.roomManager
	s.handler = handler.NewHandler(deps)

	logger.WithFields(logrus.Fields{
		"conn_per_second": cfg.Security.RateLimit.MaxPerSecond,
		"msg_per_second":  cfg.Security.MessageLimit.MaxPerSecond,
		"max_connections": cfg.Server.MaxConnections,
		"redis":           rdb != nil,
		"admin_password":  len(adminHash) > 0,
	}).Info("🔒 安全配置")
	if len(adminHash) == 0 {
		logger.Warn("⚠️ 未配置管理口令，任何人都可以创建房间")
	}

	return s, nil
}

// adminPasswordHash 优先使用配置的 bcrypt 哈希，否则对明文口令做哈希
func adminPasswordHash(cfg config.SecurityConfig) ([]byte, error) {
	if cfg.AdminPasswordHash != "" {
		hash := []byte(cfg.AdminPasswordHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("无效的管理口令哈希: %w", err)
		}
		return hash, nil
	}
	if cfg.AdminPassword == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("管理口令哈希失败: %w", err)
	}
	return hash, nil
}

// RoomManager 房间管理器
func (s *Server) RoomManager() *room.RoomManager {
	return s.roomManager
}

// Start 启动服务器，阻塞直到 ctx 取消或监听失败
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Addr()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.roomManager.Run(ctx, s.config.Game.CleanupIntervalDuration())
	go s.rateLimiter.Run(ctx)
	go s.monitorStats(ctx, 30*time.Second)

	s.logger.WithFields(logrus.Fields{
		"addr": addr,
		"cpus": runtime.NumCPU(),
	}).Infof("🚀 服务器启动在 ws://%s/ws", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("监听 %s 失败: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
