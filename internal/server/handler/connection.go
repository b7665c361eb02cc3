package handler

import (
	"time"

	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
	"github.com/palemoky/old-maid/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		return
	}

	// 立即回复 pong
	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// HandleDisconnect 连接断开等同于离开房间
func (h *Handler) HandleDisconnect(client types.ClientInterface) {
	if _, ok := h.sessions.Get(client.GetID()); !ok {
		return
	}
	h.logger.WithField("client", client.GetID()).Info("📴 连接断开，离开房间")
	h.handleLeaveRoom(client)
}
