package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 房间操作
	MsgJoinRoom    MessageType = "join_room"    // 加入房间
	MsgLeaveRoom   MessageType = "leave_room"   // 离开房间
	MsgReady       MessageType = "ready"        // 切换准备状态
	MsgStartGame   MessageType = "start_game"   // 房主开始游戏
	MsgRestartGame MessageType = "restart_game" // 房主重开一局

	// 游戏操作
	MsgDrawCard MessageType = "draw_card" // 从下家抽一张牌（目标由服务端决定）

	// 信息查询
	MsgGetRoomList    MessageType = "get_room_list"   // 获取房间列表
	MsgGetStats       MessageType = "get_stats"       // 获取个人统计
	MsgGetLeaderboard MessageType = "get_leaderboard" // 获取排行榜
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected MessageType = "connected" // 连接成功
	MsgPong      MessageType = "pong"      // 心跳 pong

	// 房间相关
	MsgRoomJoined MessageType = "room_joined" // 加入房间成功
	MsgPlayerLeft MessageType = "player_left" // 玩家离开

	// 游戏流程
	MsgGameState     MessageType = "game_state"     // 公开的房间快照（广播）
	MsgYourCards     MessageType = "your_cards"     // 私有手牌（只发给本人）
	MsgCardDrawn     MessageType = "card_drawn"     // 抽牌结果（广播，用于动画）
	MsgGameStarted   MessageType = "game_started"   // 游戏开始
	MsgGameRestarted MessageType = "game_restarted" // 房间回到大厅
	MsgGameOver      MessageType = "game_over"      // 游戏结束

	// 信息查询结果
	MsgRoomListResult    MessageType = "room_list_result"   // 房间列表结果
	MsgStatsResult       MessageType = "stats_result"       // 个人统计结果
	MsgLeaderboardResult MessageType = "leaderboard_result" // 排行榜结果

	// 错误
	MsgError MessageType = "error" // 错误消息（只发给发起者）
)
