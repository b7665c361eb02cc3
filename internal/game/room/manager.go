package room

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/server/storage"
)

// emptyRoomGrace 没有玩家的房间在被清理前保留的时间
const emptyRoomGrace = time.Minute

// RoomStore 房间镜像存储，nil 表示不持久化
type RoomStore interface {
	SaveRoom(ctx context.Context, roomCode string, data *storage.RoomData) error
	DeleteRoom(ctx context.Context, code string) error
}

// ExpireFunc 房间被清理时的回调，参数为被清理房间中剩余的玩家
type ExpireFunc func(code string, playerIDs []string)

// RoomManager 房间目录：房间号到房间的唯一映射
type RoomManager struct {
	store       RoomStore
	roomTimeout time.Duration
	opts        Options
	logger      logrus.FieldLogger
	onExpire    ExpireFunc
	rooms       map[string]*Room
	mu          sync.RWMutex
	writers     sync.Map // code -> *roomWriter
}

// roomWriter 串行写入单个房间的镜像，只保留最新一次待写入的操作
type roomWriter struct {
	mu      sync.Mutex
	pending *storage.RoomData
	remove  bool
	running bool
}

// NewRoomManager 创建房间管理器，清理协程由 Run 启动
func NewRoomManager(store RoomStore, opts Options, roomTimeout time.Duration, logger logrus.FieldLogger) *RoomManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &RoomManager{
		store:       store,
		roomTimeout: roomTimeout,
		opts:        opts,
		logger:      logger,
		rooms:       make(map[string]*Room),
	}
}

// SetFinishHook 设置对局结束回调，对之后创建的房间生效
func (rm *RoomManager) SetFinishHook(fn func(code string, result GameResult, players []PlayerSummary)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.opts.OnFinish = fn
}

// SetExpireHook 设置房间清理回调
func (rm *RoomManager) SetExpireHook(fn ExpireFunc) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.onExpire = fn
}

// CreateRoom 创建空房间
func (rm *RoomManager) CreateRoom() *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := rm.generateRoomCode()
	room := New(code, rm.opts)
	rm.rooms[code] = room

	rm.Persist(room)
	rm.logger.WithField("room", code).Info("🏠 房间已创建")

	return room
}

// GetRoom 获取房间，不存在返回 nil
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// RemoveRoom 删除房间
func (rm *RoomManager) RemoveRoom(code string) {
	rm.mu.Lock()
	_, exists := rm.rooms[code]
	delete(rm.rooms, code)
	rm.mu.Unlock()

	if !exists {
		return
	}
	rm.deleteFromStore(code)
	rm.logger.WithField("room", code).Info("🏠 房间已解散")
}

// RemoveIfEmpty 房间没人时删除，返回是否删除
func (rm *RoomManager) RemoveIfEmpty(code string) bool {
	rm.mu.Lock()
	room, exists := rm.rooms[code]
	if !exists || room.PlayerCount() > 0 {
		rm.mu.Unlock()
		return false
	}
	delete(rm.rooms, code)
	rm.mu.Unlock()

	rm.deleteFromStore(code)
	rm.logger.WithField("room", code).Info("🏠 房间已空，已解散")
	return true
}

// Persist 异步把房间镜像写入存储
//
// 同一房间的写入按调用顺序进行，尚未写出的旧镜像会被新镜像覆盖。
func (rm *RoomManager) Persist(room *Room) {
	if rm.store == nil {
		return
	}
	rm.enqueue(room.Code, room.ToRoomData(), false)
}

func (rm *RoomManager) deleteFromStore(code string) {
	if rm.store == nil {
		return
	}
	rm.enqueue(code, nil, true)
}

func (rm *RoomManager) enqueue(code string, data *storage.RoomData, remove bool) {
	v, _ := rm.writers.LoadOrStore(code, &roomWriter{})
	w := v.(*roomWriter)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending, w.remove = data, remove
	if !w.running {
		w.running = true
		go rm.flush(code, w)
	}
}

// flush 依次写出待写入的操作，队列为空时退出
func (rm *RoomManager) flush(code string, w *roomWriter) {
	for {
		w.mu.Lock()
		data, remove := w.pending, w.remove
		w.pending, w.remove = nil, false
		if data == nil && !remove {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if remove {
			if err := rm.store.DeleteRoom(ctx, code); err != nil {
				rm.logger.WithError(err).WithField("room", code).Warn("⚠️ 删除房间失败")
			}
		} else if err := rm.store.SaveRoom(ctx, code, data); err != nil {
			rm.logger.WithError(err).WithField("room", code).Warn("⚠️ 保存房间失败")
		}
		cancel()

		if remove {
			w.mu.Lock()
			if w.pending == nil && !w.remove {
				w.running = false
				rm.writers.CompareAndDelete(code, w)
				w.mu.Unlock()
				return
			}
			w.mu.Unlock()
		}
	}
}

// GetRoomList 获取可加入的房间列表（大厅中且未满）
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	result := make([]protocol.RoomListItem, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		state := room.State()
		count := room.PlayerCount()
		if state != RoomStateLobby || count >= room.MaxPlayers() {
			continue
		}
		result = append(result, protocol.RoomListItem{
			RoomCode:    room.Code,
			PlayerCount: count,
			MaxPlayers:  room.MaxPlayers(),
			State:       state.String(),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoomCode < result[j].RoomCode })
	return result
}

// GetRoomInfo 获取单个房间的概要
func (rm *RoomManager) GetRoomInfo(code string) (protocol.RoomListItem, bool) {
	room := rm.GetRoom(code)
	if room == nil {
		return protocol.RoomListItem{}, false
	}
	return protocol.RoomListItem{
		RoomCode:    room.Code,
		PlayerCount: room.PlayerCount(),
		MaxPlayers:  room.MaxPlayers(),
		State:       room.State().String(),
	}, true
}

// GetActiveGamesCount 获取进行中的游戏数量
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		if room.State() == RoomStatePlaying {
			count++
		}
	}
	return count
}

// RoomCount 房间总数
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// generateRoomCode 生成房间号，调用方需持有写锁
func (rm *RoomManager) generateRoomCode() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
		}
		codeStr := string(code)
		if _, exists := rm.rooms[codeStr]; !exists {
			return codeStr
		}
	}
}

// Run 定期清理空房间和超时的大厅房间，直到 ctx 结束
func (rm *RoomManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.cleanup(time.Now())
		}
	}
}

// cleanup 清理空房间和超时的大厅房间
func (rm *RoomManager) cleanup(now time.Time) {
	type expired struct {
		code    string
		players []string
	}
	var removed []expired

	rm.mu.Lock()
	for code, room := range rm.rooms {
		count := room.PlayerCount()
		since := now.Sub(room.LastActivity())
		idle := room.State() == RoomStateLobby && rm.roomTimeout > 0 && since > rm.roomTimeout
		// 刚创建还没人加入的房间保留一个宽限期
		empty := count == 0 && since > emptyRoomGrace
		if !empty && !idle {
			continue
		}
		removed = append(removed, expired{code: code, players: room.PlayerIDs()})
		delete(rm.rooms, code)
	}
	onExpire := rm.onExpire
	rm.mu.Unlock()

	for _, e := range removed {
		rm.deleteFromStore(e.code)
		rm.logger.WithFields(logrus.Fields{"room": e.code, "players": len(e.players)}).Info("🧹 房间超时已清理")
		if onExpire != nil && len(e.players) > 0 {
			onExpire(e.code, e.players)
		}
	}
}
