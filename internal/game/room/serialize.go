package room

import (
	"github.com/palemoky/old-maid/internal/server/storage"
)

// ToRoomData 将 Room 转换为可序列化的 RoomData，不包含任何牌面
func (r *Room) ToRoomData() *storage.RoomData {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := &storage.RoomData{
		Code:        r.Code,
		State:       r.state.String(),
		Players:     make([]storage.PlayerData, 0, len(r.players)),
		PlayerOrder: make([]string, 0, len(r.players)),
		CurrentIdx:  -1,
		CreatedAt:   r.CreatedAt.Unix(),
		UpdatedAt:   r.lastActivity.Unix(),
	}
	if r.state == RoomStatePlaying {
		data.CurrentIdx = r.cursor
	}

	for _, p := range r.players {
		data.PlayerOrder = append(data.PlayerOrder, p.ID)
		data.Players = append(data.Players, storage.PlayerData{
			ID:          p.ID,
			Name:        p.Name,
			Ready:       p.Ready,
			IsAdmin:     p.IsAdmin,
			CardsCount:  len(p.Hand),
			PairsCount:  len(p.Pairs),
			HasFinished: p.HasFinished,
			FinishRank:  p.FinishRank,
		})
	}

	if r.result != nil {
		data.Result = &storage.ResultData{
			Reason:    string(r.result.Reason),
			LoserID:   r.result.LoserID,
			WinnerIDs: append([]string(nil), r.result.WinnerIDs...),
		}
	}

	return data
}
