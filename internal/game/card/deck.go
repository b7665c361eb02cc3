package card

import (
	"fmt"
	"math/rand/v2"

	"github.com/palemoky/old-maid/internal/apperrors"
)

// Random 牌局使用的随机源，*rand.Rand 即满足该接口
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int                     { return rand.IntN(n) }
func (globalRandom) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRandom 进程级共享的均匀随机源（并发安全）
var DefaultRandom Random = globalRandom{}

// DeckConfig 牌组配置：每个点数在每个花色下各一张，外加一张老千牌
type DeckConfig struct {
	Ranks []Rank
	Suits []Suit
}

// StandardDeckConfig 标准配置：13 个点数 × 4 种花色 + 大王 = 53 张
func StandardDeckConfig() DeckConfig {
	cfg := DeckConfig{Suits: []Suit{Spade, Heart, Club, Diamond}}
	for r := RankA; r <= RankK; r++ {
		cfg.Ranks = append(cfg.Ranks, r)
	}
	return cfg
}

// Validate 校验配置：总张数必须为奇数，且除老千牌外每个点数都能完全配对
func (c DeckConfig) Validate() error {
	if len(c.Ranks) == 0 || len(c.Suits) == 0 {
		return fmt.Errorf("%w: 点数和花色不能为空", apperrors.ErrConfig)
	}
	if len(c.Suits)%2 != 0 {
		return fmt.Errorf("%w: 花色数量必须为偶数（当前 %d）", apperrors.ErrConfig, len(c.Suits))
	}

	seenRanks := make(map[Rank]bool, len(c.Ranks))
	for _, r := range c.Ranks {
		if !r.Valid() || seenRanks[r] {
			return fmt.Errorf("%w: 无效或重复的点数 %s", apperrors.ErrConfig, r)
		}
		seenRanks[r] = true
	}
	seenSuits := make(map[Suit]bool, len(c.Suits))
	for _, s := range c.Suits {
		if !s.Valid() || seenSuits[s] {
			return fmt.Errorf("%w: 无效或重复的花色 %d", apperrors.ErrConfig, s)
		}
		seenSuits[s] = true
	}

	if (len(c.Ranks)*len(c.Suits)+1)%2 == 0 {
		return fmt.Errorf("%w: 牌组张数必须为奇数", apperrors.ErrConfig)
	}
	return nil
}

// Size 配置对应的牌组张数
func (c DeckConfig) Size() int {
	return len(c.Ranks)*len(c.Suits) + 1
}

// Deck 定义一副牌
type Deck []Card

// BuildDeck 按配置生成一副未洗的牌，老千牌放在最后
func BuildDeck(cfg DeckConfig) (Deck, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deck := make(Deck, 0, cfg.Size())
	for _, s := range cfg.Suits {
		for _, r := range cfg.Ranks {
			deck = append(deck, NewCard(s, r))
		}
	}
	deck = append(deck, OldMaid())
	return deck, nil
}

// NewDeck 生成标准 53 张牌
func NewDeck() Deck {
	deck, _ := BuildDeck(StandardDeckConfig())
	return deck
}

// Shuffle 原地均匀洗牌（Fisher–Yates）
func (d Deck) Shuffle(r Random) {
	if r == nil {
		r = DefaultRandom
	}
	r.Shuffle(len(d), func(i, j int) {
		d[i], d[j] = d[j], d[i]
	})
}

// OddCardCount 统计牌组中老千牌数量
func (d Deck) OddCardCount() int {
	n := 0
	for _, c := range d {
		if c.OddCard {
			n++
		}
	}
	return n
}
