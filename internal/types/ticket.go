package types

import (
	"fmt"
	"strings"
)

// TicketType is the tier of a redeemable ticket. The numeric values match the
// ticket token ids on the ticket ledger.
type TicketType uint8

const (
	TicketGold   TicketType = 1
	TicketSilver TicketType = 2
	TicketBronze TicketType = 3
)

// TicketTypes lists every recognized tier in id order.
var TicketTypes = []TicketType{TicketGold, TicketSilver, TicketBronze}

func (t TicketType) Valid() bool {
	return t >= TicketGold && t <= TicketBronze
}

// DrawCount is the number of cards produced per redeemed ticket (0 if unknown).
func (t TicketType) DrawCount() int {
	switch t {
	case TicketGold:
		return 5
	case TicketSilver:
		return 4
	case TicketBronze:
		return 3
	default:
		return 0
	}
}

// RarityDomain is the ordered set of rarities a tier can produce.
func (t TicketType) RarityDomain() []Rarity {
	switch t {
	case TicketGold, TicketSilver:
		return []Rarity{RarityRare, RarityEpic, RarityLegendary}
	case TicketBronze:
		return []Rarity{RarityCommon, RarityRare, RarityEpic}
	default:
		return nil
	}
}

// InDomain reports whether r can be produced by tier t.
func (t TicketType) InDomain(r Rarity) bool {
	for _, d := range t.RarityDomain() {
		if d == r {
			return true
		}
	}
	return false
}

func (t TicketType) String() string {
	switch t {
	case TicketGold:
		return "gold"
	case TicketSilver:
		return "silver"
	case TicketBronze:
		return "bronze"
	default:
		return fmt.Sprintf("ticket(%d)", uint8(t))
	}
}

// ParseTicketType accepts a tier name ("gold") or its numeric id ("1").
func ParseTicketType(s string) (TicketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gold", "1":
		return TicketGold, nil
	case "silver", "2":
		return TicketSilver, nil
	case "bronze", "3":
		return TicketBronze, nil
	default:
		return 0, ErrUnknownTicketType.Wrapf("%q", s)
	}
}

// Rarity is a collectible rarity outcome.
type Rarity uint8

const (
	RarityCommon    Rarity = 1
	RarityRare      Rarity = 2
	RarityEpic      Rarity = 3
	RarityLegendary Rarity = 4
)

// Rarities lists every rarity in ascending order.
var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return fmt.Sprintf("rarity(%d)", uint8(r))
	}
}

func ParseRarity(s string) (Rarity, error) {
	for _, r := range Rarities {
		if strings.EqualFold(strings.TrimSpace(s), r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if r < RarityCommon || r > RarityLegendary {
		return nil, fmt.Errorf("unknown rarity %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Pool is a reward-category pool that mints collectibles.
type Pool uint8

const (
	PoolEquipment Pool = 1
	PoolHero      Pool = 2
	PoolSpell     Pool = 3
	PoolTower     Pool = 4
)

// Pools lists every reward pool in a stable order; pool selection walks it.
var Pools = []Pool{PoolEquipment, PoolHero, PoolSpell, PoolTower}

func (p Pool) Valid() bool {
	return p >= PoolEquipment && p <= PoolTower
}

func (p Pool) String() string {
	switch p {
	case PoolEquipment:
		return "equipment"
	case PoolHero:
		return "hero"
	case PoolSpell:
		return "spell"
	case PoolTower:
		return "tower"
	default:
		return fmt.Sprintf("pool(%d)", uint8(p))
	}
}

func ParsePool(s string) (Pool, error) {
	for _, p := range Pools {
		if strings.EqualFold(strings.TrimSpace(s), p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pool %q", s)
}

func (p Pool) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown pool %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Pool) UnmarshalText(b []byte) error {
	v, err := ParsePool(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// AssetID identifies one minted collectible.
type AssetID string
