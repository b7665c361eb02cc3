package room

import (
	"slices"

	"github.com/palemoky/old-maid/internal/game/card"
	"github.com/palemoky/old-maid/internal/game/rule"
)

// PlayerSummary 玩家的公开信息，只有数量没有牌面
type PlayerSummary struct {
	ID          string
	Name        string
	CardsCount  int
	PairsCount  int
	Ready       bool
	IsAdmin     bool
	HasFinished bool
	HasOddCard  bool
	FinishRank  int
}

// PublicSnapshot 可以广播给所有人的房间快照
type PublicSnapshot struct {
	RoomCode      string
	State         RoomState
	Players       []PlayerSummary
	CurrentIdx    int // 非游戏中为 -1
	CurrentID     string
	NextTargetIdx int // 当前行动者将要抽牌的对象，没有为 -1
	NextTargetID  string
	DeckSize      int
	LastAction    *DrawAction
	Result        *GameResult
	Log           []LogEntry
	CanStart      bool
}

// PrivateHand 只发给本人的手牌
type PrivateHand struct {
	PlayerID string
	Cards    []card.Card
	Pairs    []rule.Pair
}

// PublicSnapshot 生成公开快照
func (r *Room) PublicSnapshot() PublicSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// PrivateHand 获取玩家自己的手牌，玩家不存在时返回 false
func (r *Room) PrivateHand(playerID string) (PrivateHand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return PrivateHand{}, false
	}
	return PrivateHand{
		PlayerID: p.ID,
		Cards:    slices.Clone(p.Hand),
		Pairs:    slices.Clone(p.Pairs),
	}, true
}

func (r *Room) summaries() []PlayerSummary {
	out := make([]PlayerSummary, len(r.players))
	for i, p := range r.players {
		out[i] = PlayerSummary{
			ID:          p.ID,
			Name:        p.Name,
			CardsCount:  len(p.Hand),
			PairsCount:  len(p.Pairs),
			Ready:       p.Ready,
			IsAdmin:     p.IsAdmin,
			HasFinished: p.HasFinished,
			HasOddCard:  p.HasOddCard,
			FinishRank:  p.FinishRank,
		}
	}
	return out
}

func (r *Room) snapshot() PublicSnapshot {
	s := PublicSnapshot{
		RoomCode:      r.Code,
		State:         r.state,
		Players:       r.summaries(),
		CurrentIdx:    -1,
		NextTargetIdx: -1,
		DeckSize:      r.deckSize,
		LastAction:    r.lastAction.clone(),
		Result:        r.result.clone(),
		Log:           r.log.tail(r.opts.SnapshotLogSize),
		CanStart:      r.canStart(),
	}

	if r.state == RoomStatePlaying && r.cursor < len(r.players) {
		s.CurrentIdx = r.cursor
		s.CurrentID = r.players[r.cursor].ID
		if target, ok := rule.DrawTarget(r.handCounts(), r.cursor); ok {
			s.NextTargetIdx = target
			s.NextTargetID = r.players[target].ID
		}
	}
	return s
}
