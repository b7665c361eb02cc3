package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲
	sendBufferSize = 256

	// 超速次数超过该值断开连接
	maxRateWarnings = 5
)

// Client 一个 WebSocket 连接
type Client struct {
	ID string
	IP string

	server *Server
	conn   *websocket.Conn
	send   chan *protocol.Message
	log    logrus.FieldLogger

	// 回复使用客户端最近一次发送的帧类型（文本 JSON / 二进制 Protobuf）
	frameType atomic.Int32

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn, ip string) *Client {
	id := uuid.NewString()
	c := &Client{
		ID:     id,
		IP:     ip,
		server: s,
		conn:   conn,
		send:   make(chan *protocol.Message, sendBufferSize),
		log:    s.logger.WithFields(logrus.Fields{"client": id, "ip": ip}),
		done:   make(chan struct{}),
	}
	c.frameType.Store(websocket.TextMessage)
	return c
}

// GetID 连接 ID
func (c *Client) GetID() string {
	return c.ID
}

// ReadPump 从 WebSocket 读取消息并交给处理器
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("🚨 readPump panic recovered")
		}
		c.server.handleDisconnect(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("⚠️ 读取错误")
			}
			return
		}

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			c.log.Warn("⚠️ 消息过于频繁")
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.Strikes(c.ID) > maxRateWarnings {
				c.log.Warn("🚫 多次超速，断开连接")
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		msg, err := c.decode(frameType, data)
		if err != nil {
			c.log.WithError(err).Debug("消息解析错误")
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}
		c.frameType.Store(int32(frameType))

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// decode 按帧类型解码
func (c *Client) decode(frameType int, data []byte) (*protocol.Message, error) {
	if frameType == websocket.BinaryMessage {
		return codec.DecodeBinary(data)
	}
	return codec.Decode(data)
}

// encode 按客户端当前的帧类型编码
func (c *Client) encode(msg *protocol.Message) (int, []byte, error) {
	frameType := int(c.frameType.Load())
	if frameType == websocket.BinaryMessage {
		data, err := codec.EncodeBinary(msg)
		return frameType, data, err
	}
	data, err := codec.Encode(msg)
	return websocket.TextMessage, data, err
}

// WritePump 向 WebSocket 写入消息并定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("🚨 writePump panic recovered")
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			frameType, data, err := c.encode(msg)
			if err != nil {
				c.log.WithError(err).WithField("type", msg.Type).Error("❌ 消息编码错误")
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// SendMessage 发送消息给客户端，缓冲区满时断开连接
func (c *Client) SendMessage(msg *protocol.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.log.Warn("⚠️ 发送缓冲区已满，断开连接")
		c.Close()
	}
}

// Close 关闭客户端连接（可重复调用）
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
