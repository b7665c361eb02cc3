package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/apperrors"
	"github.com/palemoky/old-maid/internal/game/room"
	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
	"github.com/palemoky/old-maid/internal/server/session"
	"github.com/palemoky/old-maid/internal/server/storage"
	"github.com/palemoky/old-maid/internal/types"
)

// Leaderboard 统计与排行榜，nil 表示未启用
type Leaderboard interface {
	RecordGame(ctx context.Context, outcomes []storage.Outcome) error
	GetPlayerStats(ctx context.Context, playerName string) (*storage.PlayerStats, error)
	GetPlayerRank(ctx context.Context, playerName string) (int64, error)
	GetLeaderboard(ctx context.Context, period storage.Period, limit int) ([]storage.LeaderboardEntry, error)
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	RoomManager *room.RoomManager
	Sessions    *session.Table
	Leaderboard Leaderboard
	Logger      logrus.FieldLogger
}

// Handler 消息处理器
type Handler struct {
	server      types.ServerInterface
	roomManager *room.RoomManager
	sessions    *session.Table
	leaderboard Leaderboard
	logger      logrus.FieldLogger
	handlers    map[protocol.MessageType]handlerFunc

	roomLocks sync.Map // roomCode -> *sync.Mutex
	statsWG   sync.WaitGroup
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器，并把对局结束和房间清理回调挂到房间管理器上
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Sessions == nil {
		deps.Sessions = session.NewTable()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	h := &Handler{
		server:      deps.Server,
		roomManager: deps.RoomManager,
		sessions:    deps.Sessions,
		leaderboard: deps.Leaderboard,
		logger:      deps.Logger,
	}
	h.initHandlers()

	h.roomManager.SetFinishHook(h.onGameFinished)
	h.roomManager.SetExpireHook(h.onRoomExpired)
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 房间操作
		protocol.MsgJoinRoom:  h.handleJoinRoom,
		protocol.MsgLeaveRoom: func(c types.ClientInterface, _ *protocol.Message) { h.handleLeaveRoom(c) },
		protocol.MsgReady:     func(c types.ClientInterface, _ *protocol.Message) { h.handleReady(c) },

		// 游戏操作
		protocol.MsgStartGame:   func(c types.ClientInterface, _ *protocol.Message) { h.handleStartGame(c) },
		protocol.MsgDrawCard:    func(c types.ClientInterface, _ *protocol.Message) { h.handleDrawCard(c) },
		protocol.MsgRestartGame: func(c types.ClientInterface, _ *protocol.Message) { h.handleRestartGame(c) },

		// 信息查询
		protocol.MsgGetRoomList:    func(c types.ClientInterface, _ *protocol.Message) { h.handleGetRoomList(c) },
		protocol.MsgGetStats:       h.handleGetStats,
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"client":      client.GetID(),
		"type":        msg.Type,
		"payload_len": len(msg.Payload),
	}).Warn("⚠️ 未知消息类型")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// Sessions 会话表
func (h *Handler) Sessions() *session.Table {
	return h.sessions
}

// Wait 等待后台的统计写入完成
func (h *Handler) Wait() {
	h.statsWG.Wait()
}

// lockRoom 同一房间同一时间只处理一个操作，保证广播顺序和操作顺序一致
//
// 拿到锁时房间可能已经被移除，此时返回 ErrRoomNotFound。
func (h *Handler) lockRoom(r *room.Room) (func(), error) {
	v, _ := h.roomLocks.LoadOrStore(r.Code, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	if h.roomManager.GetRoom(r.Code) != r {
		mu.Unlock()
		return nil, apperrors.ErrRoomNotFound
	}
	return mu.Unlock, nil
}

// sendError 只把错误发给发起者
func (h *Handler) sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
		return
	}
	h.logger.WithError(err).WithField("client", client.GetID()).Error("❌ 处理请求失败")
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}

// boundRoom 取得连接所在的房间
func (h *Handler) boundRoom(client types.ClientInterface) (session.Binding, *room.Room, error) {
	b, ok := h.sessions.Get(client.GetID())
	if !ok {
		return session.Binding{}, nil, apperrors.ErrNotInRoom
	}
	r := h.roomManager.GetRoom(b.RoomCode)
	if r == nil {
		h.sessions.Unbind(client.GetID())
		return session.Binding{}, nil, apperrors.ErrRoomNotFound
	}
	if !r.HasPlayer(b.PlayerID) {
		h.sessions.Unbind(client.GetID())
		return session.Binding{}, nil, apperrors.ErrNotInRoom
	}
	return b, r, nil
}
