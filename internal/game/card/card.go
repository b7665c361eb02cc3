package card

import "strconv"

// Suit 定义花色
type Suit int

// Rank 定义点数
type Rank int

// Card 定义一张牌，按值比较（花色 + 点数 + 是否为老千牌）
type Card struct {
	Suit    Suit
	Rank    Rank
	OddCard bool // 老千牌（大王），永远无法配对
}

const (
	SuitNone Suit = iota // 无花色，仅老千牌使用
	Spade                // 黑桃
	Heart                // 红心
	Club                 // 梅花
	Diamond              // 方块
)

// suitSymbols 花色符号映射表
var suitSymbols = map[Suit]string{
	SuitNone: "",
	Spade:    "♠",
	Heart:    "♥",
	Club:     "♣",
	Diamond:  "♦",
}

func (s Suit) String() string {
	if symbol, ok := suitSymbols[s]; ok {
		return symbol
	}
	return ""
}

// Valid 是否为四种常规花色之一
func (s Suit) Valid() bool {
	return s >= Spade && s <= Diamond
}

const (
	RankNone Rank = iota // 无点数，仅老千牌使用
	RankA
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ // Jack
	RankQ // Queen
	RankK // King
)

// rankNames 牌面值字符串映射表
var rankNames = map[Rank]string{
	RankA:  "A",
	Rank2:  "2",
	Rank3:  "3",
	Rank4:  "4",
	Rank5:  "5",
	Rank6:  "6",
	Rank7:  "7",
	Rank8:  "8",
	Rank9:  "9",
	Rank10: "10",
	RankJ:  "J",
	RankQ:  "Q",
	RankK:  "K",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// Valid 是否为常规点数
func (r Rank) Valid() bool {
	return r >= RankA && r <= RankK
}

// NewCard 创建一张普通牌
func NewCard(s Suit, r Rank) Card {
	return Card{Suit: s, Rank: r}
}

// OldMaid 返回唯一的老千牌
func OldMaid() Card {
	return Card{Suit: SuitNone, Rank: RankNone, OddCard: true}
}

// SameRank 两张牌能否配对：老千牌不属于任何点数
func (c Card) SameRank(other Card) bool {
	if c.OddCard || other.OddCard {
		return false
	}
	return c.Rank == other.Rank
}

func (c Card) String() string {
	if c.OddCard {
		return "🃏"
	}
	return c.Suit.String() + c.Rank.String()
}
