package convert

import (
	"github.com/palemoky/old-maid/internal/game/card"
	"github.com/palemoky/old-maid/internal/game/rule"
	"github.com/palemoky/old-maid/internal/protocol"
)

// CardToInfo 将 card.Card 转换为 protocol.CardInfo
func CardToInfo(c card.Card) protocol.CardInfo {
	return protocol.CardInfo{
		Suit:    int(c.Suit),
		Rank:    int(c.Rank),
		OddCard: c.OddCard,
	}
}

// CardsToInfos 将 []card.Card 转换为 []protocol.CardInfo
func CardsToInfos(cards []card.Card) []protocol.CardInfo {
	infos := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = CardToInfo(c)
	}
	return infos
}

// InfoToCard 将 protocol.CardInfo 转换为 card.Card
func InfoToCard(info protocol.CardInfo) card.Card {
	if info.OddCard {
		return card.OldMaid()
	}
	return card.NewCard(card.Suit(info.Suit), card.Rank(info.Rank))
}

// InfosToCards 将 []protocol.CardInfo 转换为 []card.Card
func InfosToCards(infos []protocol.CardInfo) []card.Card {
	cards := make([]card.Card, len(infos))
	for i, info := range infos {
		cards[i] = InfoToCard(info)
	}
	return cards
}

// PairsToInfos 将对子转换为 [][2]protocol.CardInfo
func PairsToInfos(pairs []rule.Pair) [][2]protocol.CardInfo {
	infos := make([][2]protocol.CardInfo, len(pairs))
	for i, p := range pairs {
		infos[i] = [2]protocol.CardInfo{CardToInfo(p[0]), CardToInfo(p[1])}
	}
	return infos
}
