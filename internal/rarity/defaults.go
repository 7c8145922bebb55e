package rarity

import "ticketredemption/internal/types"

func bands3(lo, mid, hi types.Rarity, a, b uint8) Thresholds {
	return Thresholds{{Rarity: lo, UpTo: a}, {Rarity: mid, UpTo: b}, {Rarity: hi, UpTo: MaxEntropy}}
}

func premium(rareTo, epicTo uint8) Thresholds {
	return bands3(types.RarityRare, types.RarityEpic, types.RarityLegendary, rareTo, epicTo)
}

func basic(commonTo, rareTo uint8) Thresholds {
	return bands3(types.RarityCommon, types.RarityRare, types.RarityEpic, commonTo, rareTo)
}

// DefaultTiers are the shipped odds. Later positions of a tier are more
// generous.
func DefaultTiers() map[types.TicketType]TierTable {
	return map[types.TicketType]TierTable{
		types.TicketGold: {
			1: premium(70, 95),
			2: premium(70, 95),
			3: premium(50, 85),
			4: premium(50, 85),
			5: premium(50, 85),
		},
		types.TicketSilver: {
			1: premium(85, 98),
			2: premium(80, 97),
			3: premium(75, 95),
			4: premium(65, 92),
		},
		types.TicketBronze: {
			1: basic(80, 97),
			2: basic(60, 92),
			3: basic(60, 92),
		},
	}
}

// Defaults returns a Table populated with DefaultTiers.
func Defaults() *Table {
	t := NewTable()
	for tier, tt := range DefaultTiers() {
		if err := t.SetTier(tier, tt); err != nil {
			panic(err)
		}
	}
	return t
}
