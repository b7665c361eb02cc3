package rule

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/old-maid/internal/game/card"
)

func c(s card.Suit, r card.Rank) card.Card { return card.NewCard(s, r) }

func TestExtractPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hand      []card.Card
		remaining []card.Card
		pairs     []Pair
	}{
		{
			name:      "Empty hand",
			hand:      nil,
			remaining: nil,
			pairs:     nil,
		},
		{
			name:      "No pairs",
			hand:      []card.Card{c(card.Spade, card.RankA), c(card.Heart, card.Rank2)},
			remaining: []card.Card{c(card.Spade, card.RankA), c(card.Heart, card.Rank2)},
		},
		{
			name:      "Single pair keeps order of the rest",
			hand:      []card.Card{c(card.Spade, card.Rank5), c(card.Heart, card.RankK), c(card.Club, card.Rank5), c(card.Diamond, card.Rank2)},
			remaining: []card.Card{c(card.Heart, card.RankK), c(card.Diamond, card.Rank2)},
			pairs:     []Pair{{c(card.Spade, card.Rank5), c(card.Club, card.Rank5)}},
		},
		{
			name: "Three of a rank leaves the last one",
			hand: []card.Card{c(card.Spade, card.RankQ), c(card.Heart, card.RankQ), c(card.Club, card.RankQ)},
			remaining: []card.Card{
				c(card.Club, card.RankQ),
			},
			pairs: []Pair{{c(card.Spade, card.RankQ), c(card.Heart, card.RankQ)}},
		},
		{
			name: "Four of a rank make two pairs in encounter order",
			hand: []card.Card{c(card.Spade, card.Rank7), c(card.Heart, card.Rank7), c(card.Club, card.Rank7), c(card.Diamond, card.Rank7)},
			pairs: []Pair{
				{c(card.Spade, card.Rank7), c(card.Heart, card.Rank7)},
				{c(card.Club, card.Rank7), c(card.Diamond, card.Rank7)},
			},
			remaining: []card.Card{},
		},
		{
			name:      "Odd card never pairs",
			hand:      []card.Card{card.OldMaid(), c(card.Spade, card.RankJ), c(card.Heart, card.RankJ)},
			remaining: []card.Card{card.OldMaid()},
			pairs:     []Pair{{c(card.Spade, card.RankJ), c(card.Heart, card.RankJ)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			remaining, pairs := ExtractPairs(tt.hand)
			assert.Equal(t, len(tt.remaining), len(remaining))
			if len(tt.remaining) > 0 {
				assert.Equal(t, tt.remaining, remaining)
			}
			assert.Equal(t, tt.pairs, pairs)
		})
	}
}

func TestExtractPairs_Idempotent(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(3, 5))
	for range 200 {
		deck := card.NewDeck()
		deck.Shuffle(rnd)
		hand := deck[:rnd.IntN(len(deck))]

		once, _ := ExtractPairs(hand)
		twice, pairs := ExtractPairs(once)
		assert.Equal(t, once, twice)
		assert.Empty(t, pairs)
	}
}

func TestExtractPairs_NeverRemovesOddCard(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(9, 9))
	for range 200 {
		deck := card.NewDeck()
		deck.Shuffle(rnd)
		hand := deck[:rnd.IntN(len(deck))+1]

		remaining, pairs := ExtractPairs(hand)
		assert.Equal(t, HasOddCard(hand), HasOddCard(remaining))
		for _, p := range pairs {
			assert.False(t, p[0].OddCard)
			assert.False(t, p[1].OddCard)
			assert.Equal(t, p[0].Rank, p[1].Rank)
		}
		assert.Equal(t, len(hand), len(remaining)+2*len(pairs))
	}
}

func TestExtractPairs_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	hand := []card.Card{c(card.Spade, card.Rank3), c(card.Heart, card.Rank3), c(card.Club, card.Rank4)}
	orig := append([]card.Card(nil), hand...)
	_, _ = ExtractPairs(hand)
	assert.Equal(t, orig, hand)
}

func TestCanPairAny(t *testing.T) {
	t.Parallel()

	assert.False(t, CanPairAny([]card.Card{card.OldMaid(), c(card.Spade, card.Rank3)}))
	assert.True(t, CanPairAny([]card.Card{c(card.Club, card.Rank3), c(card.Spade, card.Rank3)}))
}

func TestFirstHolderFrom(t *testing.T) {
	t.Parallel()

	idx, ok := FirstHolderFrom([]int{0, 0, 3}, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = FirstHolderFrom([]int{2, 0, 0}, 1)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = FirstHolderFrom([]int{1, 1}, 5)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = FirstHolderFrom([]int{0, 0}, 0)
	assert.False(t, ok)

	_, ok = FirstHolderFrom(nil, 0)
	assert.False(t, ok)
}

func TestDrawTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts []int
		actor  int
		want   int
		ok     bool
	}{
		{name: "Immediate neighbour", counts: []int{3, 2, 1}, actor: 0, want: 1, ok: true},
		{name: "Skips empty hands", counts: []int{3, 0, 0, 4}, actor: 0, want: 3, ok: true},
		{name: "Wraps around", counts: []int{3, 0, 2}, actor: 2, want: 0, ok: true},
		{name: "Never targets self", counts: []int{0, 5, 0}, actor: 1, want: -1, ok: false},
		{name: "Out of range actor", counts: []int{1, 1}, actor: 4, want: -1, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := DrawTarget(tt.counts, tt.actor)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextActor(t *testing.T) {
	t.Parallel()

	idx, ok := NextActor([]int{1, 0, 2, 0}, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = NextActor([]int{1, 0, 2, 0}, 2)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	// only the current player still holds cards: the circuit comes back to them
	idx, ok = NextActor([]int{0, 3}, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 2, HolderCount([]int{1, 0, 2, 0}))
}
