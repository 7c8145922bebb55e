package rarity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"ticketredemption/internal/types"
)

const (
	MinEntropy = 1
	MaxEntropy = 100
)

// Band covers entropy values up to and including UpTo, starting one past the
// previous band's bound.
type Band struct {
	Rarity types.Rarity `json:"rarity"`
	UpTo   uint8        `json:"upTo"`
}

// Thresholds is an ordered list of cumulative bands partitioning [1,100].
type Thresholds []Band

// Validate checks that th partitions [1,100] into contiguous bands of
// distinct rarities drawn from the tier's domain.
func (th Thresholds) Validate(tier types.TicketType) error {
	if len(th) == 0 {
		return types.ErrInvalidRarityTable.Wrap("no bands")
	}
	var prev uint8
	seen := map[types.Rarity]bool{}
	for i, b := range th {
		if !tier.InDomain(b.Rarity) {
			return types.ErrInvalidRarityTable.Wrapf("band %d: %s is not in the %s domain", i, b.Rarity, tier)
		}
		if seen[b.Rarity] {
			return types.ErrInvalidRarityTable.Wrapf("band %d: duplicate rarity %s", i, b.Rarity)
		}
		seen[b.Rarity] = true
		if b.UpTo <= prev {
			return types.ErrInvalidRarityTable.Wrapf("band %d: bound %d must exceed %d", i, b.UpTo, prev)
		}
		if b.UpTo > MaxEntropy {
			return types.ErrInvalidRarityTable.Wrapf("band %d: bound %d exceeds %d", i, b.UpTo, MaxEntropy)
		}
		prev = b.UpTo
	}
	if prev != MaxEntropy {
		return types.ErrInvalidRarityTable.Wrapf("bands end at %d, want %d", prev, MaxEntropy)
	}
	return nil
}

func (th Thresholds) lookup(entropy uint64) types.Rarity {
	for _, b := range th {
		if entropy <= uint64(b.UpTo) {
			return b.Rarity
		}
	}
	return 0
}

func (th Thresholds) String() string {
	parts := make([]string, 0, len(th))
	var lo uint8 = 1
	for _, b := range th {
		parts = append(parts, fmt.Sprintf("%s %d-%d", b.Rarity, lo, b.UpTo))
		lo = b.UpTo + 1
	}
	return strings.Join(parts, ", ")
}

// Slot addresses the thresholds of one draw position within a tier.
type Slot struct {
	Tier     types.TicketType
	Position int
}

// TierTable holds the thresholds of every position of a single tier.
type TierTable map[int]Thresholds

// Validate requires exactly positions 1..drawCount, each a valid partition.
func (tt TierTable) Validate(tier types.TicketType) error {
	if !tier.Valid() {
		return types.ErrUnknownTicketType.Wrapf("%d", uint8(tier))
	}
	n := tier.DrawCount()
	for p := range tt {
		if p < 1 || p > n {
			return types.ErrInvalidRarityTable.Wrapf("%s: position %d outside [1,%d]", tier, p, n)
		}
	}
	for p := 1; p <= n; p++ {
		th, ok := tt[p]
		if !ok {
			return types.ErrInvalidRarityTable.Wrapf("%s: position %d has no thresholds", tier, p)
		}
		if err := th.Validate(tier); err != nil {
			return errorsmod.Wrapf(err, "%s position %d", tier, p)
		}
	}
	return nil
}

// Table maps (tier, position) to thresholds. Resolve is pure; a Table is not
// safe for concurrent mutation.
type Table struct {
	slots map[Slot]Thresholds
}

func NewTable() *Table {
	return &Table{slots: map[Slot]Thresholds{}}
}

// SetTier replaces every position of one tier after validating it.
func (t *Table) SetTier(tier types.TicketType, tt TierTable) error {
	if err := tt.Validate(tier); err != nil {
		return err
	}
	for s := range t.slots {
		if s.Tier == tier {
			delete(t.slots, s)
		}
	}
	for p, th := range tt {
		t.slots[Slot{Tier: tier, Position: p}] = append(Thresholds(nil), th...)
	}
	return nil
}

func (t *Table) Tier(tier types.TicketType) TierTable {
	out := TierTable{}
	for s, th := range t.slots {
		if s.Tier == tier {
			out[s.Position] = append(Thresholds(nil), th...)
		}
	}
	return out
}

// Configured reports whether every position of tier has thresholds.
func (t *Table) Configured(tier types.TicketType) bool {
	if t == nil || !tier.Valid() {
		return false
	}
	for p := 1; p <= tier.DrawCount(); p++ {
		if _, ok := t.slots[Slot{Tier: tier, Position: p}]; !ok {
			return false
		}
	}
	return true
}

// Resolve maps an entropy value for a draw position to a rarity.
func (t *Table) Resolve(tier types.TicketType, position int, entropy uint64) (types.Rarity, error) {
	if !tier.Valid() {
		return 0, types.ErrUnknownTicketType.Wrapf("%d", uint8(tier))
	}
	if position < 1 || position > tier.DrawCount() {
		return 0, types.ErrInvalidRequest.Wrapf("position %d outside [1,%d] for %s", position, tier.DrawCount(), tier)
	}
	if entropy < MinEntropy || entropy > MaxEntropy {
		return 0, types.ErrEntropyOutOfRange.Wrapf("%d", entropy)
	}
	if t == nil {
		return 0, types.ErrConfigurationMissing.Wrap("rarity table")
	}
	th, ok := t.slots[Slot{Tier: tier, Position: position}]
	if !ok {
		return 0, types.ErrConfigurationMissing.Wrapf("rarity table for %s position %d", tier, position)
	}
	r := th.lookup(entropy)
	if r == 0 {
		return 0, types.ErrInvalidRarityTable.Wrapf("%s position %d does not cover %d", tier, position, entropy)
	}
	return r, nil
}

func (t *Table) Clone() *Table {
	out := NewTable()
	if t == nil {
		return out
	}
	for s, th := range t.slots {
		out.slots[s] = append(Thresholds(nil), th...)
	}
	return out
}

// Entry is the serialized form of one slot.
type Entry struct {
	Tier     types.TicketType `json:"tier"`
	Position int              `json:"position"`
	Bands    Thresholds       `json:"bands"`
}

// Entries lists every slot ordered by tier then position.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.slots))
	for s, th := range t.slots {
		out = append(out, Entry{Tier: s.Tier, Position: s.Position, Bands: append(Thresholds(nil), th...)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Entries())
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	t.slots = make(map[Slot]Thresholds, len(entries))
	for _, e := range entries {
		if !e.Tier.Valid() {
			return types.ErrUnknownTicketType.Wrapf("%d", uint8(e.Tier))
		}
		if err := e.Bands.Validate(e.Tier); err != nil {
			return err
		}
		t.slots[Slot{Tier: e.Tier, Position: e.Position}] = e.Bands
	}
	return nil
}
