package room

import (
	"fmt"
	"slices"

	"github.com/palemoky/old-maid/internal/apperrors"
	"github.com/palemoky/old-maid/internal/game/card"
	"github.com/palemoky/old-maid/internal/game/rule"
)

// Draw 当前行动者从下一个有牌的玩家手中随机抽一张牌
//
// 抽到的牌放到手牌末尾，随后配对并丢弃成对的牌。出错时房间状态不变。
func (r *Room) Draw(playerID string) (PublicSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RoomStatePlaying {
		return PublicSnapshot{}, apperrors.ErrIllegalState
	}
	idx := r.indexOf(playerID)
	if idx < 0 {
		return PublicSnapshot{}, apperrors.ErrPlayerNotFound
	}
	if idx != r.cursor {
		return PublicSnapshot{}, apperrors.ErrNotYourTurn
	}

	targetIdx, ok := rule.DrawTarget(r.handCounts(), idx)
	if !ok {
		r.invariantViolation(apperrors.ErrInvalidTarget, "没有可以抽牌的目标")
		return PublicSnapshot{}, apperrors.ErrInvalidTarget
	}

	actor := r.players[idx]
	target := r.players[targetIdx]

	k := r.opts.Random.IntN(len(target.Hand))
	drawn := target.Hand[k]
	target.Hand = slices.Delete(target.Hand, k, k+1)

	remaining, pairs := rule.ExtractPairs(append(actor.Hand, drawn))
	actor.Hand = remaining
	actor.Pairs = append(actor.Pairs, pairs...)

	r.lastAction = &DrawAction{
		PlayerID:   actor.ID,
		PlayerName: actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		Card:       drawn,
		Pairs:      pairs,
		At:         r.now(),
	}
	if len(pairs) > 0 {
		r.addLog(fmt.Sprintf("%s 从 %s 手中抽了一张牌，凑成 %d 对", actor.Name, target.Name, len(pairs)))
	} else {
		r.addLog(fmt.Sprintf("%s 从 %s 手中抽了一张牌", actor.Name, target.Name))
	}
	r.touch()

	// 被抽空的玩家先出完
	if len(target.Hand) == 0 {
		r.markFinished(target)
	}
	if len(actor.Hand) == 0 {
		r.markFinished(actor)
	}

	if !r.evaluateEnd() {
		r.cursor, _ = rule.NextActor(r.handCounts(), idx)
	}

	return r.snapshot(), nil
}

func (r *Room) markFinished(p *Player) {
	if p.HasFinished {
		return
	}
	p.HasFinished = true
	r.finishOrder = append(r.finishOrder, p.ID)
	p.FinishRank = len(r.finishOrder)
	r.addLog(fmt.Sprintf("%s 出完了所有牌，第 %d 名", p.Name, p.FinishRank))
}

// evaluateEnd 检查是否结束，已结束返回 true
func (r *Room) evaluateEnd() bool {
	if rule.HolderCount(r.handCounts()) > 1 && !r.pairsStillPossible() {
		r.discardDeadCards()
	}

	counts := r.handCounts()
	switch rule.HolderCount(counts) {
	case 0:
		r.invariantViolation(apperrors.ErrIllegalState, "没有玩家持牌，无法确定输家")
		r.finish(FinishAnomaly, nil)
		return true
	case 1:
		idx, _ := rule.FirstHolderFrom(counts, 0)
		r.finish(FinishOddCard, r.players[idx])
		return true
	default:
		return false
	}
}

// pairsStillPossible 所有在场手牌合在一起是否还能凑成对
//
// 有人中途离开后，与其手牌对应的牌再也凑不成对。
func (r *Room) pairsStillPossible() bool {
	var all []card.Card
	for _, p := range r.players {
		all = append(all, p.Hand...)
	}
	return rule.CanPairAny(all)
}

// discardDeadCards 不可能再配对时，没有鬼牌的玩家弃掉死牌并按座位顺序出完
func (r *Room) discardDeadCards() {
	r.addLog("剩余的牌已无法配对，死牌作废")
	for _, p := range r.players {
		if len(p.Hand) == 0 || rule.HasOddCard(p.Hand) {
			continue
		}
		p.Hand = nil
		r.markFinished(p)
	}
}

// finish 进入结束状态并通知 OnFinish
func (r *Room) finish(reason FinishReason, loser *Player) {
	r.state = RoomStateFinished
	r.cursor = 0

	result := &GameResult{
		Reason:     reason,
		FinishedAt: r.now(),
	}

	switch reason {
	case FinishOddCard:
		loser.HasOddCard = true
		result.LoserID = loser.ID
		result.LoserName = loser.Name
		result.WinnerIDs = slices.Clone(r.finishOrder)
		r.addLog(fmt.Sprintf("游戏结束，%s 留下了鬼牌", loser.Name))
	case FinishAbandoned:
		r.addLog("人数不足，游戏中止")
	case FinishOddCardLeft:
		r.addLog("持有鬼牌的玩家离开，游戏中止")
	case FinishAnomaly:
		r.addLog("游戏异常结束，无法确定输家")
	}
	r.result = result
	r.touch()

	if r.opts.OnFinish != nil {
		r.opts.OnFinish(r.Code, *result.clone(), r.summaries())
	}
}
