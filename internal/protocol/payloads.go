package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

// GetStatsPayload 获取个人统计请求，昵称为空时使用当前房间中的昵称
type GetStatsPayload struct {
	PlayerName string `json:"player_name"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Limit  int    `json:"limit"`            // 数量
	Period string `json:"period,omitempty"` // all / daily / weekly，默认 all
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// RoomJoinedPayload 加入房间成功响应
type RoomJoinedPayload struct {
	RoomCode   string `json:"room_code"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// PlayerLeftPayload 玩家离开通知
type PlayerLeftPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// GameStatePayload 公开快照：不包含任何人的具体手牌
type GameStatePayload struct {
	RoomCode         string         `json:"room_code"`
	State            string         `json:"state"` // lobby/playing/finished
	Players          []PlayerInfo   `json:"players"`
	CurrentPlayerIdx int            `json:"current_player_index"`
	CurrentPlayerID  string         `json:"current_player_id,omitempty"`
	NextTargetIdx    int            `json:"next_target_index"` // -1 表示没有
	NextTargetID     string         `json:"next_target_id,omitempty"`
	DeckSize         int            `json:"deck_size"`
	LastAction       *DrawResult    `json:"last_action,omitempty"`
	Result           *GameResult    `json:"result,omitempty"`
	Log              []LogEntryInfo `json:"log"`
	CanStart         bool           `json:"can_start"`
}

// YourCardsPayload 私有手牌
type YourCardsPayload struct {
	Cards []CardInfo    `json:"cards"`
	Pairs [][2]CardInfo `json:"pairs"`
}

// DrawResult 一次抽牌的结果（抽到的牌对所有人可见）
type DrawResult struct {
	PlayerID   string        `json:"player_id"`
	PlayerName string        `json:"player_name"`
	TargetID   string        `json:"target_id"`
	TargetName string        `json:"target_name"`
	Card       CardInfo      `json:"card"`
	Pairs      [][2]CardInfo `json:"pairs,omitempty"`
}

// GameResult 对局结果
type GameResult struct {
	Reason    string   `json:"reason"` // odd_card/abandoned/odd_card_left/anomaly
	LoserID   string   `json:"loser_id,omitempty"`
	LoserName string   `json:"loser_name,omitempty"`
	WinnerIDs []string `json:"winner_ids"` // 按出完牌的先后排序
}

// GameStartedPayload 游戏开始通知
type GameStartedPayload struct {
	RoomCode    string `json:"room_code"`
	PlayerCount int    `json:"player_count"`
	DeckSize    int    `json:"deck_size"`
}

// GameRestartedPayload 房间回到大厅通知
type GameRestartedPayload struct {
	RoomCode string `json:"room_code"`
}

// GameOverPayload 游戏结束通知
type GameOverPayload struct {
	RoomCode string       `json:"room_code"`
	Result   GameResult   `json:"result"`
	Players  []PlayerInfo `json:"players"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatsResultPayload 个人统计结果
type StatsResultPayload struct {
	PlayerName string  `json:"player_name"`
	TotalGames int     `json:"total_games"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	Score      int     `json:"score"`
	Rank       int     `json:"rank"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Period  string             `json:"period"`
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerName string  `json:"player_name"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
}

// RoomListResultPayload 房间列表结果
type RoomListResultPayload struct {
	Rooms []RoomListItem `json:"rooms"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	RoomCode    string `json:"room_code"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	State       string `json:"state"`
}

// --- 通用数据结构 ---

// PlayerInfo 玩家公开信息（只有手牌数量，没有手牌内容）
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CardsCount  int    `json:"cards_count"`
	PairsCount  int    `json:"pairs_count"`
	Ready       bool   `json:"ready"`
	IsAdmin     bool   `json:"is_admin"`
	HasFinished bool   `json:"has_finished"`
	HasOddCard  bool   `json:"has_odd_card"`
	FinishRank  int    `json:"finish_rank,omitempty"` // 出完牌的名次，从 1 开始
}

// CardInfo 牌信息
type CardInfo struct {
	Suit    int  `json:"suit"` // 花色: 0=无, 1=黑桃, 2=红心, 3=梅花, 4=方块
	Rank    int  `json:"rank"` // 点数: 1-13 (A-K)，老千牌为 0
	OddCard bool `json:"odd_card"`
}

// LogEntryInfo 事件日志条目
type LogEntryInfo struct {
	Time    int64  `json:"time"` // 毫秒时间戳
	Message string `json:"message"`
}
