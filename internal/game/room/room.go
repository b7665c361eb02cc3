package room

import (
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/palemoky/old-maid/internal/game/card"
	"github.com/palemoky/old-maid/internal/game/rule"
)

const (
	roomCodeLength = 6            // 房间号长度
	roomCodeChars  = "0123456789" // 房间号字符集

	DefaultMaxPlayers      = 6
	DefaultMinPlayers      = 2
	DefaultLogCapacity     = 50
	DefaultSnapshotLogSize = 10
	MaxNameLength          = 20

	minPlayingMembers = 2 // 游戏中少于该人数即中止
)

// Options 房间参数
type Options struct {
	MaxPlayers      int
	MinPlayers      int
	Deck            card.DeckConfig
	LogCapacity     int
	SnapshotLogSize int
	Random          card.Random
	Logger          logrus.FieldLogger

	// OnFinish 在对局结束时同步调用（持有房间锁），不能再回调房间方法
	OnFinish func(code string, result GameResult, players []PlayerSummary)
}

// DefaultOptions 默认房间参数
func DefaultOptions() Options {
	return Options{
		MaxPlayers:      DefaultMaxPlayers,
		MinPlayers:      DefaultMinPlayers,
		Deck:            card.StandardDeckConfig(),
		LogCapacity:     DefaultLogCapacity,
		SnapshotLogSize: DefaultSnapshotLogSize,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = DefaultMaxPlayers
	}
	if o.MinPlayers < 2 {
		o.MinPlayers = DefaultMinPlayers
	}
	if len(o.Deck.Ranks) == 0 && len(o.Deck.Suits) == 0 {
		o.Deck = card.StandardDeckConfig()
	}
	if o.LogCapacity <= 0 {
		o.LogCapacity = DefaultLogCapacity
	}
	if o.SnapshotLogSize <= 0 {
		o.SnapshotLogSize = DefaultSnapshotLogSize
	}
	if o.Random == nil {
		o.Random = card.DefaultRandom
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Player 房间中的玩家，手牌只能通过房间方法修改
type Player struct {
	ID          string
	Name        string
	Hand        []card.Card
	Pairs       []rule.Pair
	Ready       bool
	IsAdmin     bool
	HasFinished bool // 游戏中手牌已出完
	HasOddCard  bool // 结束时持有鬼牌
	FinishRank  int  // 出完牌的名次，从 1 开始
	JoinedAt    time.Time
}

func (p *Player) clone() Player {
	c := *p
	c.Hand = slices.Clone(p.Hand)
	c.Pairs = slices.Clone(p.Pairs)
	return c
}

func (p *Player) resetForLobby() {
	p.Hand = nil
	p.Pairs = nil
	p.Ready = false
	p.HasFinished = false
	p.HasOddCard = false
	p.FinishRank = 0
}

// DrawAction 一次抽牌的结果
type DrawAction struct {
	PlayerID   string
	PlayerName string
	TargetID   string
	TargetName string
	Card       card.Card
	Pairs      []rule.Pair
	At         time.Time
}

func (a *DrawAction) clone() *DrawAction {
	if a == nil {
		return nil
	}
	c := *a
	c.Pairs = slices.Clone(a.Pairs)
	return &c
}

// GameResult 对局结果
type GameResult struct {
	Reason     FinishReason
	LoserID    string
	LoserName  string
	WinnerIDs  []string // 按出完牌的先后排列
	FinishedAt time.Time
}

func (r *GameResult) clone() *GameResult {
	if r == nil {
		return nil
	}
	c := *r
	c.WinnerIDs = slices.Clone(r.WinnerIDs)
	return &c
}

// Room 游戏房间
//
// 房间是成员和手牌的唯一所有者，所有修改都经过下面的方法并由 mu 串行化。
// 房间不持有任何连接信息。
type Room struct {
	Code      string    // 房间号
	CreatedAt time.Time // 创建时间

	state        RoomState
	players      []*Player // 顺序即轮转顺序，开局后只删除不重排
	cursor       int
	log          *eventLog
	lastAction   *DrawAction
	result       *GameResult
	finishOrder  []string
	deckSize     int
	lastActivity time.Time
	opts         Options
	now          func() time.Time

	mu sync.Mutex
}

// New 创建空房间（Lobby 状态）
func New(code string, opts Options) *Room {
	opts = opts.withDefaults()
	now := time.Now()
	return &Room{
		Code:         code,
		CreatedAt:    now,
		state:        RoomStateLobby,
		players:      make([]*Player, 0, opts.MaxPlayers),
		log:          newEventLog(opts.LogCapacity),
		lastActivity: now,
		opts:         opts,
		now:          time.Now,
	}
}

// State 当前状态
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PlayerCount 当前成员数量
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// MaxPlayers 人数上限
func (r *Room) MaxPlayers() int {
	return r.opts.MaxPlayers
}

// LastActivity 最后一次状态变化的时间
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// PlayerIDs 按轮转顺序返回成员 ID
func (r *Room) PlayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

// IsAdmin 是否是房主
func (r *Room) IsAdmin(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findPlayer(playerID)
	return p != nil && p.IsAdmin
}

// HasPlayer 玩家是否在房间中
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPlayer(playerID) != nil
}

func (r *Room) indexOf(playerID string) int {
	return slices.IndexFunc(r.players, func(p *Player) bool { return p.ID == playerID })
}

func (r *Room) findPlayer(playerID string) *Player {
	if idx := r.indexOf(playerID); idx >= 0 {
		return r.players[idx]
	}
	return nil
}

func (r *Room) handCounts() []int {
	counts := make([]int, len(r.players))
	for i, p := range r.players {
		counts[i] = len(p.Hand)
	}
	return counts
}

func (r *Room) touch() {
	r.lastActivity = r.now()
}

func (r *Room) addLog(msg string) {
	r.log.add(r.now(), msg)
}

// invariantViolation 引擎不变量被破坏，大声记录
func (r *Room) invariantViolation(err error, msg string) {
	r.opts.Logger.WithFields(logrus.Fields{
		"room":   r.Code,
		"state":  r.state.String(),
		"cursor": r.cursor,
		"counts": r.handCounts(),
	}).WithError(err).Error("🚨 " + msg)
}
