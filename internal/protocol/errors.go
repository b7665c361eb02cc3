package protocol

// 错误码
const (
	ErrCodeUnknown        = 1000
	ErrCodeInvalidMsg     = 1001
	ErrCodeRateLimit      = 1002 // 速率限制
	ErrCodeUnauthorized   = 1003
	ErrCodeRoomNotFound   = 2001
	ErrCodeRoomFull       = 2002
	ErrCodeNotInRoom      = 2003
	ErrCodeNameTaken      = 2004
	ErrCodeInvalidName    = 2005
	ErrCodePlayerNotFound = 2006
	ErrCodeNotAdmin       = 2007
	ErrCodeGameStarted    = 2008
	ErrCodeIllegalState   = 3001
	ErrCodeNotYourTurn    = 3002
	ErrCodeInvalidTarget  = 3003
	ErrCodeConfig         = 4001
	ErrCodeServerClosing  = 5003 // 服务器即将关闭
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:        "未知错误",
	ErrCodeInvalidMsg:     "无效的消息格式",
	ErrCodeRateLimit:      "请求过于频繁",
	ErrCodeUnauthorized:   "密码错误",
	ErrCodeRoomNotFound:   "房间不存在",
	ErrCodeRoomFull:       "房间已满",
	ErrCodeNotInRoom:      "您不在房间中",
	ErrCodeNameTaken:      "该昵称已被占用",
	ErrCodeInvalidName:    "昵称无效",
	ErrCodePlayerNotFound: "玩家不存在",
	ErrCodeNotAdmin:       "只有房主可以执行该操作",
	ErrCodeGameStarted:    "游戏已经开始",
	ErrCodeIllegalState:   "当前阶段不允许该操作",
	ErrCodeNotYourTurn:    "还没轮到您",
	ErrCodeInvalidTarget:  "没有可以抽牌的玩家",
	ErrCodeConfig:         "牌组配置错误",
	ErrCodeServerClosing:  "服务器即将关闭",
}
