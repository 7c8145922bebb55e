package rarity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ticketredemption/internal/types"
)

func TestDefaults_PartitionEveryPosition(t *testing.T) {
	tbl := Defaults()
	for _, tier := range types.TicketTypes {
		require.True(t, tbl.Configured(tier), tier.String())
		for p := 1; p <= tier.DrawCount(); p++ {
			counts := map[types.Rarity]int{}
			for e := uint64(1); e <= 100; e++ {
				r, err := tbl.Resolve(tier, p, e)
				require.NoError(t, err)
				require.True(t, tier.InDomain(r), "%s p=%d e=%d -> %s", tier, p, e, r)
				counts[r]++
			}
			total := 0
			for _, c := range counts {
				total += c
			}
			require.Equal(t, 100, total)
			// Every rarity of the domain is reachable.
			require.Len(t, counts, len(tier.RarityDomain()))
		}
	}
}

func TestResolve_BandEdges(t *testing.T) {
	tbl := Defaults()
	cases := []struct {
		tier     types.TicketType
		position int
		entropy  uint64
		want     types.Rarity
	}{
		{types.TicketGold, 1, 1, types.RarityRare},
		{types.TicketGold, 1, 70, types.RarityRare},
		{types.TicketGold, 1, 71, types.RarityEpic},
		{types.TicketGold, 2, 95, types.RarityEpic},
		{types.TicketGold, 2, 96, types.RarityLegendary},
		{types.TicketGold, 3, 50, types.RarityRare},
		{types.TicketGold, 5, 86, types.RarityLegendary},
		{types.TicketSilver, 1, 98, types.RarityEpic},
		{types.TicketSilver, 1, 99, types.RarityLegendary},
		{types.TicketSilver, 4, 66, types.RarityEpic},
		{types.TicketBronze, 1, 80, types.RarityCommon},
		{types.TicketBronze, 1, 98, types.RarityEpic},
		{types.TicketBronze, 3, 61, types.RarityRare},
		{types.TicketBronze, 3, 100, types.RarityEpic},
	}
	for _, tc := range cases {
		got, err := tbl.Resolve(tc.tier, tc.position, tc.entropy)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s p=%d e=%d", tc.tier, tc.position, tc.entropy)
	}
}

func TestResolve_GoldSequenceIsStable(t *testing.T) {
	tbl := Defaults()
	entropies := []uint64{12, 55, 88, 3, 99}
	want := []types.Rarity{types.RarityRare, types.RarityRare, types.RarityLegendary, types.RarityRare, types.RarityLegendary}

	for run := 0; run < 3; run++ {
		for i, e := range entropies {
			got, err := tbl.Resolve(types.TicketGold, i+1, e)
			require.NoError(t, err)
			require.Equal(t, want[i], got, "position %d", i+1)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	tbl := Defaults()

	_, err := tbl.Resolve(types.TicketGold, 1, 0)
	require.ErrorIs(t, err, types.ErrEntropyOutOfRange)
	_, err = tbl.Resolve(types.TicketGold, 1, 101)
	require.ErrorIs(t, err, types.ErrEntropyOutOfRange)

	_, err = tbl.Resolve(types.TicketGold, 0, 50)
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	_, err = tbl.Resolve(types.TicketBronze, 4, 50)
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = tbl.Resolve(types.TicketType(0), 1, 50)
	require.ErrorIs(t, err, types.ErrUnknownTicketType)

	_, err = NewTable().Resolve(types.TicketSilver, 2, 50)
	require.ErrorIs(t, err, types.ErrConfigurationMissing)
}

func TestThresholds_Validate(t *testing.T) {
	gold := types.TicketGold
	cases := map[string]Thresholds{
		"gap at end":   {{types.RarityRare, 70}, {types.RarityEpic, 99}},
		"not ordered":  {{types.RarityRare, 70}, {types.RarityEpic, 60}, {types.RarityLegendary, 100}},
		"overlap":      {{types.RarityRare, 70}, {types.RarityEpic, 70}, {types.RarityLegendary, 100}},
		"wrong domain": {{types.RarityCommon, 50}, {types.RarityRare, 100}},
		"duplicate":    {{types.RarityRare, 50}, {types.RarityRare, 100}},
		"empty":        {},
		"over 100":     {{types.RarityRare, 50}, {types.RarityEpic, 101}},
	}
	for name, th := range cases {
		require.ErrorIs(t, th.Validate(gold), types.ErrInvalidRarityTable, name)
	}

	require.NoError(t, Thresholds{{types.RarityLegendary, 100}}.Validate(gold))
}

func TestSetTier_RequiresEveryPosition(t *testing.T) {
	tbl := NewTable()
	err := tbl.SetTier(types.TicketBronze, TierTable{
		1: basic(80, 97),
		2: basic(60, 92),
	})
	require.ErrorIs(t, err, types.ErrInvalidRarityTable)
	require.False(t, tbl.Configured(types.TicketBronze))

	err = tbl.SetTier(types.TicketBronze, TierTable{
		1: basic(80, 97),
		2: basic(60, 92),
		3: basic(60, 92),
		4: basic(60, 92),
	})
	require.ErrorIs(t, err, types.ErrInvalidRarityTable)

	require.NoError(t, tbl.SetTier(types.TicketBronze, DefaultTiers()[types.TicketBronze]))
	require.True(t, tbl.Configured(types.TicketBronze))
	require.False(t, tbl.Configured(types.TicketGold))
}

func TestTable_JSONRoundTripPreservesResolution(t *testing.T) {
	tbl := Defaults()
	bz, err := json.Marshal(tbl)
	require.NoError(t, err)

	var back Table
	require.NoError(t, json.Unmarshal(bz, &back))
	require.Equal(t, tbl.Entries(), back.Entries())
}

func TestParse_MergesOverDefaults(t *testing.T) {
	tbl, err := Parse([]byte(`
tables:
  - tier: gold
    positions: [1, 2]
    bands:
      - {rarity: rare, upTo: 10}
      - {rarity: epic, upTo: 20}
      - {rarity: legendary, upTo: 100}
`))
	require.NoError(t, err)

	r, err := tbl.Resolve(types.TicketGold, 2, 50)
	require.NoError(t, err)
	require.Equal(t, types.RarityLegendary, r)

	// Untouched positions and tiers keep their defaults.
	r, err = tbl.Resolve(types.TicketGold, 3, 50)
	require.NoError(t, err)
	require.Equal(t, types.RarityRare, r)
	r, err = tbl.Resolve(types.TicketBronze, 1, 50)
	require.NoError(t, err)
	require.Equal(t, types.RarityCommon, r)
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`
tables:
  - tier: platinum
    positions: [1]
    bands: [{rarity: rare, upTo: 100}]
  - tier: bronze
    positions: [9]
    bands:
      - {rarity: mythic, upTo: 50}
      - {rarity: epic, upTo: 100}
`))
	require.ErrorIs(t, err, types.ErrInvalidRarityTable)
	require.Contains(t, err.Error(), `tables[0].tier "platinum"`)
	require.Contains(t, err.Error(), `tables[1].bands[0].rarity "mythic"`)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().Entries(), tbl.Entries())
}

func TestLoad_RawRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rarity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - tier: silver
    positions: [4]
    bands:
      - {rarity: rare, upTo: 40}
      - {rarity: epic, upTo: 90}
      - {rarity: legendary, upTo: 100}
`), 0o644))
	tbl, err := Load(path)
	require.NoError(t, err)

	rebuilt, err := Build(tbl.Raw())
	require.NoError(t, err)
	require.Equal(t, tbl.Entries(), rebuilt.Entries())
}
