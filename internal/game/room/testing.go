//go:build !production

package room

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/old-maid/internal/game/card"
)

// SeededRandom 确定性随机源，用于测试
func SeededRandom(seed uint64) card.Random {
	return rand.New(rand.NewPCG(seed, seed*0x9e3779b97f4a7c15+1))
}

// ScriptedRandom 按脚本返回结果的随机源
//
// Swaps 为洗牌时依次执行的交换，Picks 为 IntN 依次返回的值（超出范围时取模），用完后返回 0。
type ScriptedRandom struct {
	Swaps [][2]int
	Picks []int
}

func (s *ScriptedRandom) IntN(n int) int {
	if len(s.Picks) == 0 {
		return 0
	}
	v := s.Picks[0]
	s.Picks = s.Picks[1:]
	return v % n
}

func (s *ScriptedRandom) Shuffle(n int, swap func(i, j int)) {
	for _, sw := range s.Swaps {
		if sw[0] < n && sw[1] < n {
			swap(sw[0], sw[1])
		}
	}
}

// NewTestRoom 创建测试房间并按顺序加入玩家，返回玩家 ID
func NewTestRoom(t testing.TB, opts Options, names ...string) (*Room, []string) {
	t.Helper()
	r := New("123456", opts)
	ids := make([]string, len(names))
	for i, name := range names {
		p, err := r.Join(name)
		require.NoError(t, err)
		ids[i] = p.ID
	}
	return r, ids
}

// ReadyAll 让所有玩家准备
func ReadyAll(t testing.TB, r *Room) {
	t.Helper()
	for _, id := range r.PlayerIDs() {
		ready, err := r.SetReady(id)
		require.NoError(t, err)
		require.True(t, ready)
	}
}

// AddRoomForTest 添加房间用于测试
func (rm *RoomManager) AddRoomForTest(room *Room) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.rooms[room.Code] = room
}
