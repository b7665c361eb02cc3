package room

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/palemoky/old-maid/internal/apperrors"
	"github.com/palemoky/old-maid/internal/game/card"
	"github.com/palemoky/old-maid/internal/game/rule"
)

// Join 加入房间，第一个加入的玩家成为房主
func (r *Room) Join(name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return Player{}, apperrors.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RoomStateLobby {
		return Player{}, apperrors.ErrGameStarted
	}
	if len(r.players) >= r.opts.MaxPlayers {
		return Player{}, apperrors.ErrRoomFull
	}
	if slices.ContainsFunc(r.players, func(p *Player) bool { return p.Name == name }) {
		return Player{}, apperrors.ErrNameTaken
	}

	player := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		IsAdmin:  len(r.players) == 0,
		JoinedAt: r.now(),
	}
	r.players = append(r.players, player)
	r.addLog(fmt.Sprintf("%s 加入了房间", name))
	r.touch()

	return player.clone(), nil
}

// Leave 离开房间，玩家不存在时返回 false
//
// 游戏中离开不会打乱其余玩家的顺序，离开者的手牌直接作废。
func (r *Room) Leave(playerID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(playerID)
	if idx < 0 {
		return Player{}, false
	}

	removed := r.players[idx]
	r.players = slices.Delete(r.players, idx, idx+1)
	r.addLog(fmt.Sprintf("%s 离开了房间", removed.Name))
	r.touch()

	if removed.IsAdmin && len(r.players) > 0 {
		r.players[0].IsAdmin = true
		r.addLog(fmt.Sprintf("%s 成为新房主", r.players[0].Name))
	}

	switch {
	case r.state != RoomStatePlaying:
		r.cursor = 0
	case len(r.players) < minPlayingMembers:
		r.finish(FinishAbandoned, nil)
	case rule.HasOddCard(removed.Hand):
		r.finish(FinishOddCardLeft, nil)
	default:
		r.resolveCursorAfterLeave(idx)
	}

	return removed.clone(), true
}

// resolveCursorAfterLeave 从同一位置（对新人数取模）重新找到有牌的行动者
func (r *Room) resolveCursorAfterLeave(removedIdx int) {
	switch {
	case removedIdx < r.cursor:
		r.cursor--
	case removedIdx == r.cursor:
		r.cursor = removedIdx % len(r.players)
	}

	if r.evaluateEnd() {
		return
	}
	if next, ok := rule.FirstHolderFrom(r.handCounts(), r.cursor); ok {
		r.cursor = next
	}
}

// SetReady 切换准备状态，返回新的状态
func (r *Room) SetReady(playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findPlayer(playerID)
	if p == nil {
		return false, apperrors.ErrPlayerNotFound
	}
	p.Ready = !p.Ready
	r.touch()
	return p.Ready, nil
}

// CanStart 人数足够、全部准备且在大厅中
func (r *Room) CanStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canStart()
}

func (r *Room) canStart() bool {
	if r.state != RoomStateLobby || len(r.players) < r.opts.MinPlayers {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Start 开始游戏：建牌、洗牌、轮流发牌、每人先配对一次
//
// 发牌后如果只剩一人持牌，游戏直接结束。
func (r *Room) Start() (PublicSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canStart() {
		return PublicSnapshot{}, apperrors.ErrIllegalState
	}

	deck, err := card.BuildDeck(r.opts.Deck)
	if err != nil {
		return PublicSnapshot{}, err
	}
	deck.Shuffle(r.opts.Random)

	for _, p := range r.players {
		p.resetForLobby()
		p.Ready = true
	}
	for i, c := range deck {
		p := r.players[i%len(r.players)]
		p.Hand = append(p.Hand, c)
	}
	for _, p := range r.players {
		remaining, pairs := rule.ExtractPairs(p.Hand)
		p.Hand = remaining
		p.Pairs = pairs
	}

	r.state = RoomStatePlaying
	r.deckSize = len(deck)
	r.cursor = 0
	r.lastAction = nil
	r.result = nil
	r.finishOrder = nil
	r.addLog(fmt.Sprintf("游戏开始，%d 名玩家，共 %d 张牌", len(r.players), len(deck)))
	r.touch()

	for _, p := range r.players {
		if len(p.Hand) == 0 {
			r.markFinished(p)
		}
	}
	if !r.evaluateEnd() {
		r.cursor, _ = rule.FirstHolderFrom(r.handCounts(), 0)
	}

	return r.snapshot(), nil
}

// Restart 房主在结束后重置房间回到大厅，保留成员和房主
func (r *Room) Restart() (PublicSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RoomStateFinished {
		return PublicSnapshot{}, apperrors.ErrIllegalState
	}

	for _, p := range r.players {
		p.resetForLobby()
	}
	r.state = RoomStateLobby
	r.cursor = 0
	r.deckSize = 0
	r.lastAction = nil
	r.result = nil
	r.finishOrder = nil
	r.addLog("房主重新开始了游戏，请准备")
	r.touch()

	return r.snapshot(), nil
}
