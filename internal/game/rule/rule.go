package rule

import "github.com/palemoky/old-maid/internal/game/card"

// Pair 一对被打出的牌
type Pair [2]card.Card

// ExtractPairs 配对：按点数分组，同点数的牌按出现顺序两两成对移除，
// 落单的牌保留在手中。老千牌不属于任何点数，永远不会被移除。
//
// 剩余手牌保持原有顺序，不会重新排序；结果只由手牌顺序决定。
func ExtractPairs(hand []card.Card) ([]card.Card, []Pair) {
	removed := make([]bool, len(hand))
	pending := make(map[card.Rank]int) // 点数 -> 等待配对的牌下标
	var pairs []Pair

	for i, c := range hand {
		if c.OddCard {
			continue
		}
		j, ok := pending[c.Rank]
		if !ok {
			pending[c.Rank] = i
			continue
		}
		pairs = append(pairs, Pair{hand[j], c})
		removed[i], removed[j] = true, true
		delete(pending, c.Rank)
	}

	if len(pairs) == 0 {
		return hand, nil
	}

	remaining := make([]card.Card, 0, len(hand)-2*len(pairs))
	for i, c := range hand {
		if !removed[i] {
			remaining = append(remaining, c)
		}
	}
	return remaining, pairs
}

// CanPairAny 手牌中是否还存在可配对的牌
func CanPairAny(hand []card.Card) bool {
	_, pairs := ExtractPairs(hand)
	return len(pairs) > 0
}

// HasOddCard 手牌中是否有老千牌
func HasOddCard(hand []card.Card) bool {
	for _, c := range hand {
		if c.OddCard {
			return true
		}
	}
	return false
}
