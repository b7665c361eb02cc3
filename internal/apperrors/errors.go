package apperrors

import (
	"errors"

	"github.com/palemoky/old-maid/internal/protocol"
)

// GameError 游戏错误（引擎、房间目录和处理器共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrIllegalState   = &GameError{Code: protocol.ErrCodeIllegalState, Message: "当前阶段不允许该操作"}
	ErrNotYourTurn    = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "还没轮到您"}
	ErrInvalidTarget  = &GameError{Code: protocol.ErrCodeInvalidTarget, Message: "没有可以抽牌的玩家"}
	ErrRoomFull       = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNameTaken      = &GameError{Code: protocol.ErrCodeNameTaken, Message: "该昵称已被占用"}
	ErrInvalidName    = &GameError{Code: protocol.ErrCodeInvalidName, Message: "昵称无效"}
	ErrPlayerNotFound = &GameError{Code: protocol.ErrCodePlayerNotFound, Message: "玩家不存在"}
	ErrConfig         = &GameError{Code: protocol.ErrCodeConfig, Message: "牌组配置错误"}
	ErrRoomNotFound   = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrNotInRoom      = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrNotAdmin       = &GameError{Code: protocol.ErrCodeNotAdmin, Message: "只有房主可以执行该操作"}
	ErrGameStarted    = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已经开始，无法加入"}
	ErrUnauthorized   = &GameError{Code: protocol.ErrCodeUnauthorized, Message: "密码错误"}
)

// Code 提取错误码，非 GameError 返回 ErrCodeUnknown
func Code(err error) int {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return protocol.ErrCodeUnknown
}
