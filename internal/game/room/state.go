package room

// RoomState 房间状态
type RoomState int

const (
	RoomStateLobby    RoomState = iota // 等待玩家准备
	RoomStatePlaying                   // 游戏中
	RoomStateFinished                  // 已结束，等待房主重开
)

func (s RoomState) String() string {
	switch s {
	case RoomStateLobby:
		return "lobby"
	case RoomStatePlaying:
		return "playing"
	case RoomStateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// FinishReason 结束原因
type FinishReason string

const (
	FinishOddCard     FinishReason = "odd_card"      // 正常结束：只剩一人持牌
	FinishAbandoned   FinishReason = "abandoned"     // 游戏中人数少于 2
	FinishOddCardLeft FinishReason = "odd_card_left" // 持有鬼牌的玩家中途离开
	FinishAnomaly     FinishReason = "anomaly"       // 没有人持牌，无法确定输家
)

// Normal 是否正常结束（有输家）
func (r FinishReason) Normal() bool {
	return r == FinishOddCard
}
