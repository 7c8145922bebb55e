package rarity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ticketredemption/internal/types"
)

// RawFile is the YAML layout of a rarity table file. Tiers or positions not
// listed keep their default thresholds.
//
//	tables:
//	  - tier: gold
//	    positions: [1, 2]
//	    bands:
//	      - {rarity: rare, upTo: 70}
//	      - {rarity: epic, upTo: 95}
//	      - {rarity: legendary, upTo: 100}
type RawFile struct {
	Tables []RawTier `yaml:"tables"`
}

type RawTier struct {
	Tier      string    `yaml:"tier"`
	Positions []int     `yaml:"positions"`
	Bands     []RawBand `yaml:"bands"`
}

type RawBand struct {
	Rarity string `yaml:"rarity"`
	UpTo   int    `yaml:"upTo"`
}

// Load reads a table file and merges it over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Table, error) {
	if path == "" {
		return Defaults(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("read rarity file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Table, error) {
	var raw RawFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, types.ErrInvalidRarityTable.Wrapf("decode yaml: %v", err)
	}
	return Build(raw)
}

// Build validates raw and merges it over the defaults. Every problem found is
// reported, not only the first.
func Build(raw RawFile) (*Table, error) {
	var errs []string
	overrides := map[types.TicketType]TierTable{}

	for i, rt := range raw.Tables {
		tier, err := types.ParseTicketType(rt.Tier)
		if err != nil {
			errs = append(errs, fmt.Sprintf("tables[%d].tier %q is not a ticket type", i, rt.Tier))
			continue
		}
		if len(rt.Positions) == 0 {
			errs = append(errs, fmt.Sprintf("tables[%d].positions must not be empty", i))
		}
		th, bandErrs := buildBands(i, rt.Bands)
		errs = append(errs, bandErrs...)
		if len(bandErrs) > 0 {
			continue
		}
		if err := th.Validate(tier); err != nil {
			errs = append(errs, fmt.Sprintf("tables[%d]: %v", i, err))
			continue
		}
		tt := overrides[tier]
		if tt == nil {
			tt = DefaultTiers()[tier]
			overrides[tier] = tt
		}
		for _, p := range rt.Positions {
			if p < 1 || p > tier.DrawCount() {
				errs = append(errs, fmt.Sprintf("tables[%d].positions: %d outside [1,%d] for %s", i, p, tier.DrawCount(), tier))
				continue
			}
			tt[p] = th
		}
	}

	if len(errs) > 0 {
		return nil, types.ErrInvalidRarityTable.Wrap(strings.Join(errs, "; "))
	}

	t := Defaults()
	for tier, tt := range overrides {
		if err := t.SetTier(tier, tt); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func buildBands(i int, raw []RawBand) (Thresholds, []string) {
	var errs []string
	th := make(Thresholds, 0, len(raw))
	for j, rb := range raw {
		r, err := types.ParseRarity(rb.Rarity)
		if err != nil {
			errs = append(errs, fmt.Sprintf("tables[%d].bands[%d].rarity %q is unknown", i, j, rb.Rarity))
			continue
		}
		if rb.UpTo < MinEntropy || rb.UpTo > MaxEntropy {
			errs = append(errs, fmt.Sprintf("tables[%d].bands[%d].upTo must be in [%d,%d]", i, j, MinEntropy, MaxEntropy))
			continue
		}
		th = append(th, Band{Rarity: r, UpTo: uint8(rb.UpTo)})
	}
	if len(raw) == 0 {
		errs = append(errs, fmt.Sprintf("tables[%d].bands must not be empty", i))
	}
	return th, errs
}

// Raw renders t in the file layout, one entry per position.
func (t *Table) Raw() RawFile {
	var out RawFile
	for _, e := range t.Entries() {
		rt := RawTier{Tier: e.Tier.String(), Positions: []int{e.Position}}
		for _, b := range e.Bands {
			rt.Bands = append(rt.Bands, RawBand{Rarity: b.Rarity.String(), UpTo: int(b.UpTo)})
		}
		out.Tables = append(out.Tables, rt)
	}
	return out
}
