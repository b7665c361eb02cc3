package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/apperrors"
	"github.com/palemoky/old-maid/internal/game/room"
	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
	"github.com/palemoky/old-maid/internal/types"
)

// handleJoinRoom 处理加入房间
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) {
	if h.server != nil && h.server.IsShuttingDown() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeServerClosing))
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	r := h.roomManager.GetRoom(payload.RoomCode)
	if r == nil {
		h.sendError(client, apperrors.ErrRoomNotFound)
		return
	}

	// 如果已在房间中，先离开；离开可能清空并移除目标房间，需要重新查找
	if _, ok := h.sessions.Get(client.GetID()); ok {
		h.handleLeaveRoom(client)
		if r = h.roomManager.GetRoom(payload.RoomCode); r == nil {
			h.sendError(client, apperrors.ErrRoomNotFound)
			return
		}
	}

	unlock, err := h.lockRoom(r)
	if err != nil {
		h.sendError(client, err)
		return
	}
	defer unlock()

	player, err := r.Join(payload.PlayerName)
	if err != nil {
		h.sendError(client, err)
		return
	}
	h.sessions.Bind(client.GetID(), r.Code, player.ID, player.Name)

	h.logger.WithFields(logrus.Fields{
		"room":   r.Code,
		"player": player.Name,
		"admin":  player.IsAdmin,
	}).Info("👤 玩家加入房间")

	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomJoined, protocol.RoomJoinedPayload{
		RoomCode:   r.Code,
		PlayerID:   player.ID,
		PlayerName: player.Name,
	}))
	h.broadcastState(r.Code, r.PublicSnapshot())
	h.roomManager.Persist(r)
}

// handleLeaveRoom 处理离开房间（也用于断线）
func (h *Handler) handleLeaveRoom(client types.ClientInterface) {
	b, r, err := h.boundRoom(client)
	if err != nil {
		return
	}

	unlock, err := h.lockRoom(r)
	h.sessions.Unbind(client.GetID())
	if err != nil {
		return
	}
	defer unlock()

	before := r.State()
	player, ok := r.Leave(b.PlayerID)
	if !ok {
		return
	}

	h.logger.WithFields(logrus.Fields{
		"room":   r.Code,
		"player": player.Name,
		"state":  before.String(),
	}).Info("👋 玩家离开房间")

	if r.PlayerCount() > 0 {
		snap := r.PublicSnapshot()
		h.broadcastRoom(r.Code, codec.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
			PlayerID:   player.ID,
			PlayerName: player.Name,
		}))
		h.broadcastState(r.Code, snap)
		if before == room.RoomStatePlaying && snap.State == room.RoomStateFinished {
			h.broadcastGameOver(snap)
		}
		h.roomManager.Persist(r)
		return
	}

	// 持锁移除，等待中的操作拿到锁后会发现房间已不存在
	if h.roomManager.RemoveIfEmpty(r.Code) {
		h.roomLocks.Delete(r.Code)
	}
}

// handleReady 处理准备（切换）
func (h *Handler) handleReady(client types.ClientInterface) {
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

	if _, err := r.SetReady(b.PlayerID); err != nil {
		h.sendError(client, err)
		return
	}
	h.broadcastState(r.Code, r.PublicSnapshot())
	h.roomManager.Persist(r)
}

// handleGetRoomList 获取房间列表
func (h *Handler) handleGetRoomList(client types.ClientInterface) {
	rooms := h.roomManager.GetRoomList()

	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomListResult, protocol.RoomListResultPayload{
		Rooms: rooms,
	}))
}

// onRoomExpired 房间被清理时通知仍在其中的玩家
func (h *Handler) onRoomExpired(code string, playerIDs []string) {
	h.roomLocks.Delete(code)
	for _, pid := range playerIDs {
		connID, ok := h.sessions.UnbindPlayer(pid)
		if !ok || h.server == nil {
			continue
		}
		if c := h.server.GetClientByID(connID); c != nil {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRoomNotFound, "房间超时已关闭"))
		}
	}
}
