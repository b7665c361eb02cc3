package session

import (
	"sync"
	"time"
)

// Binding 一个连接在房间中的身份
type Binding struct {
	ConnectionID string
	RoomCode     string
	PlayerID     string
	PlayerName   string
	JoinedAt     time.Time
}

// Table 会话表：连接 ID -> (房间号, 玩家 ID)
//
// 归传输层所有，引擎和房间目录都不知道连接的存在。
type Table struct {
	byConn   map[string]Binding
	byPlayer map[string]string // playerID -> connectionID
	mu       sync.RWMutex
}

// NewTable 创建会话表
func NewTable() *Table {
	return &Table{
		byConn:   make(map[string]Binding),
		byPlayer: make(map[string]string),
	}
}

// Bind 绑定连接到房间中的玩家，覆盖连接原有的绑定
func (t *Table) Bind(connID, roomCode, playerID, playerName string) Binding {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byConn[connID]; ok {
		delete(t.byPlayer, old.PlayerID)
	}

	b := Binding{
		ConnectionID: connID,
		RoomCode:     roomCode,
		PlayerID:     playerID,
		PlayerName:   playerName,
		JoinedAt:     time.Now(),
	}
	t.byConn[connID] = b
	t.byPlayer[playerID] = connID
	return b
}

// Unbind 解除连接的绑定，返回原绑定
func (t *Table) Unbind(connID string) (Binding, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.byConn[connID]
	if !ok {
		return Binding{}, false
	}
	delete(t.byConn, connID)
	delete(t.byPlayer, b.PlayerID)
	return b, true
}

// UnbindPlayer 按玩家 ID 解除绑定，返回连接 ID
func (t *Table) UnbindPlayer(playerID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	connID, ok := t.byPlayer[playerID]
	if !ok {
		return "", false
	}
	delete(t.byPlayer, playerID)
	delete(t.byConn, connID)
	return connID, true
}

// Get 获取连接的绑定
func (t *Table) Get(connID string) (Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.byConn[connID]
	return b, ok
}

// ConnectionOf 获取玩家对应的连接 ID
func (t *Table) ConnectionOf(playerID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	connID, ok := t.byPlayer[playerID]
	return connID, ok
}

// InRoom 房间中所有已绑定的连接
func (t *Table) InRoom(roomCode string) []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Binding
	for _, b := range t.byConn {
		if b.RoomCode == roomCode {
			out = append(out, b)
		}
	}
	return out
}

// Count 已绑定的连接数
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byConn)
}
