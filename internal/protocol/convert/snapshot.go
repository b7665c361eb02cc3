package convert

import (
	"github.com/palemoky/old-maid/internal/game/room"
	"github.com/palemoky/old-maid/internal/protocol"
)

// 引擎快照到协议的投影。公开快照只携带数量，手牌内容只出现在 YourCardsPayload 中。

// PlayerSummaryToInfo 玩家公开信息
func PlayerSummaryToInfo(p room.PlayerSummary) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ID:          p.ID,
		Name:        p.Name,
		CardsCount:  p.CardsCount,
		PairsCount:  p.PairsCount,
		Ready:       p.Ready,
		IsAdmin:     p.IsAdmin,
		HasFinished: p.HasFinished,
		HasOddCard:  p.HasOddCard,
		FinishRank:  p.FinishRank,
	}
}

// DrawActionToResult 抽牌结果，nil 返回 nil
func DrawActionToResult(a *room.DrawAction) *protocol.DrawResult {
	if a == nil {
		return nil
	}
	res := &protocol.DrawResult{
		PlayerID:   a.PlayerID,
		PlayerName: a.PlayerName,
		TargetID:   a.TargetID,
		TargetName: a.TargetName,
		Card:       CardToInfo(a.Card),
	}
	if len(a.Pairs) > 0 {
		res.Pairs = PairsToInfos(a.Pairs)
	}
	return res
}

// GameResultToInfo 对局结果，nil 返回 nil
func GameResultToInfo(r *room.GameResult) *protocol.GameResult {
	if r == nil {
		return nil
	}
	winners := make([]string, len(r.WinnerIDs))
	copy(winners, r.WinnerIDs)
	return &protocol.GameResult{
		Reason:    string(r.Reason),
		LoserID:   r.LoserID,
		LoserName: r.LoserName,
		WinnerIDs: winners,
	}
}

// SnapshotToPayload 公开快照
func SnapshotToPayload(s room.PublicSnapshot) protocol.GameStatePayload {
	players := make([]protocol.PlayerInfo, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerSummaryToInfo(p)
	}

	logs := make([]protocol.LogEntryInfo, len(s.Log))
	for i, e := range s.Log {
		logs[i] = protocol.LogEntryInfo{Time: e.Time.UnixMilli(), Message: e.Message}
	}

	return protocol.GameStatePayload{
		RoomCode:         s.RoomCode,
		State:            s.State.String(),
		Players:          players,
		CurrentPlayerIdx: s.CurrentIdx,
		CurrentPlayerID:  s.CurrentID,
		NextTargetIdx:    s.NextTargetIdx,
		NextTargetID:     s.NextTargetID,
		DeckSize:         s.DeckSize,
		LastAction:       DrawActionToResult(s.LastAction),
		Result:           GameResultToInfo(s.Result),
		Log:              logs,
		CanStart:         s.CanStart,
	}
}

// PrivateHandToPayload 私有手牌
func PrivateHandToPayload(h room.PrivateHand) protocol.YourCardsPayload {
	return protocol.YourCardsPayload{
		Cards: CardsToInfos(h.Cards),
		Pairs: PairsToInfos(h.Pairs),
	}
}
