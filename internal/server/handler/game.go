package handler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/apperrors"
	"github.com/palemoky/old-maid/internal/game/room"
	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
	"github.com/palemoky/old-maid/internal/protocol/convert"
	"github.com/palemoky/old-maid/internal/server/storage"
	"github.com/palemoky/old-maid/internal/types"
)

// handleStartGame 房主开始游戏
func (h *Handler) handleStartGame(client types.ClientInterface) {
	b, r, err := h.boundRoom(client)
	if err != nil {
		h.sendError(client, err)
		return
	}

	unlock, err := h.lockRoom(r)
	if err != nil {
		h.sendError(client, err)
		return
	}
	defer unlock()

	if !r.IsAdmin(b.PlayerID) {
		h.sendError(client, apperrors.ErrNotAdmin)
		return
	}

	snap, err := r.Start()
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"room":    r.Code,
		"players": len(snap.Players),
		"deck":    snap.DeckSize,
	}).Info("🎮 游戏开始")

	h.broadcastRoom(r.Code, codec.MustNewMessage(protocol.MsgGameStarted, protocol.GameStartedPayload{
		RoomCode:    r.Code,
		PlayerCount: len(snap.Players),
		DeckSize:    snap.DeckSize,
	}))
	for _, p := range snap.Players {
		h.sendHand(r, p.ID)
	}
	h.broadcastState(r.Code, snap)
	if snap.State == room.RoomStateFinished {
		h.broadcastGameOver(snap)
	}
	h.roomManager.Persist(r)
}

// handleDrawCard 当前玩家从下家抽牌
func (h *Handler) handleDrawCard(client types.ClientInterface) {
	b, r, err := h.boundRoom(client)
	if err != nil {
		h.sendError(client, err)
		return
	}

	unlock, err := h.lockRoom(r)
	if err != nil {
		h.sendError(client, err)
		return
	}
	defer unlock()

	snap, err := r.Draw(b.PlayerID)
	if err != nil {
		h.sendError(client, err)
		return
	}

	if action := snap.LastAction; action != nil {
		h.broadcastRoom(r.Code, codec.MustNewMessage(protocol.MsgCardDrawn, convert.DrawActionToResult(action)))
		h.sendHand(r, action.PlayerID)
		h.sendHand(r, action.TargetID)
	}
	h.broadcastState(r.Code, snap)
	if snap.State == room.RoomStateFinished {
		h.broadcastGameOver(snap)
	}
	h.roomManager.Persist(r)
}

// handleRestartGame 房主在结束后重开
func (h *Handler) handleRestartGame(client types.ClientInterface) {
	b, r, err := h.boundRoom(client)
	if err != nil {
		h.sendError(client, err)
		return
	}

	unlock, err := h.lockRoom(r)
	if err != nil {
		h.sendError(client, err)
		return
	}
	defer unlock()

	if !r.IsAdmin(b.PlayerID) {
		h.sendError(client, apperrors.ErrNotAdmin)
		return
	}

	snap, err := r.Restart()
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.logger.WithField("room", r.Code).Info("🔄 房间回到大厅")

	h.broadcastRoom(r.Code, codec.MustNewMessage(protocol.MsgGameRestarted, protocol.GameRestartedPayload{
		RoomCode: r.Code,
	}))
	for _, p := range snap.Players {
		h.sendHand(r, p.ID)
	}
	h.broadcastState(r.Code, snap)
	h.roomManager.Persist(r)
}

// --- 广播 ---

// broadcastRoom 发给房间内所有已绑定的连接
func (h *Handler) broadcastRoom(code string, msg *protocol.Message) {
	if h.server == nil {
		return
	}
	for _, b := range h.sessions.InRoom(code) {
		if c := h.server.GetClientByID(b.ConnectionID); c != nil {
			c.SendMessage(msg)
		}
	}
}

// broadcastState 广播公开快照
func (h *Handler) broadcastState(code string, snap room.PublicSnapshot) {
	h.broadcastRoom(code, codec.MustNewMessage(protocol.MsgGameState, convert.SnapshotToPayload(snap)))
}

// broadcastGameOver 广播对局结果
func (h *Handler) broadcastGameOver(snap room.PublicSnapshot) {
	if snap.Result == nil {
		return
	}
	payload := convert.SnapshotToPayload(snap)
	h.broadcastRoom(snap.RoomCode, codec.MustNewMessage(protocol.MsgGameOver, protocol.GameOverPayload{
		RoomCode: snap.RoomCode,
		Result:   *payload.Result,
		Players:  payload.Players,
	}))
}

// sendHand 私有手牌只发给本人
func (h *Handler) sendHand(r *room.Room, playerID string) {
	if h.server == nil {
		return
	}
	hand, ok := r.PrivateHand(playerID)
	if !ok {
		return
	}
	connID, ok := h.sessions.ConnectionOf(playerID)
	if !ok {
		return
	}
	if c := h.server.GetClientByID(connID); c != nil {
		c.SendMessage(codec.MustNewMessage(protocol.MsgYourCards, convert.PrivateHandToPayload(hand)))
	}
}

// --- 对局结束 ---

// onGameFinished 由房间在结束时同步调用（持有房间锁），只做异步记录
func (h *Handler) onGameFinished(code string, result room.GameResult, players []room.PlayerSummary) {
	fields := logrus.Fields{"room": code, "reason": result.Reason}
	if !result.Reason.Normal() {
		h.logger.WithFields(fields).Warn("⚠️ 游戏异常结束")
		return
	}
	h.logger.WithFields(fields).WithField("loser", result.LoserName).Info("🏁 游戏结束")

	if h.leaderboard == nil {
		return
	}
	outcomes := gameOutcomes(result, players)

	h.statsWG.Add(1)
	go func() {
		defer h.statsWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.leaderboard.RecordGame(ctx, outcomes); err != nil {
			h.logger.WithError(err).WithField("room", code).Error("❌ 记录对局结果失败")
		}
	}()
}

// gameOutcomes 输家记一负，其余出完牌的玩家按名次记胜
func gameOutcomes(result room.GameResult, players []room.PlayerSummary) []storage.Outcome {
	outcomes := make([]storage.Outcome, 0, len(players))
	for _, p := range players {
		switch {
		case p.ID == result.LoserID:
			outcomes = append(outcomes, storage.Outcome{PlayerName: p.Name})
		case p.HasFinished:
			outcomes = append(outcomes, storage.Outcome{PlayerName: p.Name, Won: true, FinishRank: p.FinishRank})
		}
	}
	return outcomes
}
