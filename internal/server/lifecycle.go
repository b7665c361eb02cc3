package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
)

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			s.logger.WithFields(logrus.Fields{
				"online":       s.GetOnlineCount(),
				"rooms":        s.roomManager.RoomCount(),
				"active_games": s.roomManager.GetActiveGamesCount(),
				"goroutines":   runtime.NumGoroutine(),
				"connections":  fmt.Sprintf("%d/%d", len(s.semaphore), s.maxConnections),
				"memory_mb":    fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
			}).Info("📊 [监控]")
		}
	}
}

// IsShuttingDown 是否正在关闭（不再接受新连接和新房间）
func (s *Server) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// EnterMaintenanceMode 停止接受新连接、新房间和加入房间
func (s *Server) EnterMaintenanceMode() {
	if s.shuttingDown.Swap(true) {
		return
	}

	s.BroadcastToLobby(codec.MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    protocol.ErrCodeServerClosing,
		Message: "👷 服务器即将维护，暂停创建和加入房间",
	}))
	s.logger.Info("🔧 进入维护模式：停止新连接和房间创建")
}

// GracefulShutdown 等待进行中的对局结束（最多 timeout），然后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckIntervalDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.GetActiveGamesCount()
		if activeGames == 0 {
			s.logger.Info("✅ 所有对局已结束")
			break
		}
		s.logger.WithField("active_games", activeGames).Info("⏳ 等待对局结束...")
		<-ticker.C
	}

	if activeGames := s.roomManager.GetActiveGamesCount(); activeGames > 0 {
		s.logger.WithField("active_games", activeGames).Warn("⚠️ 超时，强制关闭进行中的对局")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.sendShutdownNotification(ctx)
	s.Shutdown(ctx)
}

// sendShutdownNotification 配置了 webhook 时发送关闭通知
func (s *Server) sendShutdownNotification(ctx context.Context) {
	url := s.config.Server.ShutdownWebhook
	if url == "" {
		return
	}

	body, _ := json.Marshal(map[string]string{"text": "抽鬼牌服务器已优雅关闭"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.WithError(err).Warn("创建通知请求失败")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		s.logger.WithError(err).Warn("发送关闭通知失败")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		s.logger.Info("🔔 已发送关闭通知")
	} else {
		s.logger.WithField("status", resp.StatusCode).Warn("通知响应异常")
	}
}

// Shutdown 关闭 HTTP 服务、所有连接和等待中的统计写入
func (s *Server) Shutdown(ctx context.Context) {
	s.shuttingDown.Store(true)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("HTTP 服务关闭失败")
		}
	}

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()

	s.handler.Wait()

	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.logger.Info("服务器已关闭")
}
