package pool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ticketredemption/internal/types"
)

type fakePool struct {
	pool   types.Pool
	minted int
	fail   error
}

func (f *fakePool) Mint(recipient common.Address, rarity types.Rarity) (types.AssetID, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.minted++
	return types.AssetID(fmt.Sprintf("%s-%s-%d", f.pool, rarity, f.minted)), nil
}

func fakePools() map[types.Pool]RewardPool {
	out := map[types.Pool]RewardPool{}
	for _, p := range types.Pools {
		out[p] = &fakePool{pool: p}
	}
	return out
}

func TestPick_UniformCoversEveryPool(t *testing.T) {
	w := Uniform()
	require.Equal(t, uint64(4), w.Total())
	for i, want := range types.Pools {
		got, err := Pick(w, uint64(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := Pick(w, 4)
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestPick_ZeroWeightNeverChosen(t *testing.T) {
	w := Weights{types.PoolHero: 3, types.PoolTower: 1}
	for d := uint64(0); d < 3; d++ {
		p, err := Pick(w, d)
		require.NoError(t, err)
		require.Equal(t, types.PoolHero, p)
	}
	p, err := Pick(w, 3)
	require.NoError(t, err)
	require.Equal(t, types.PoolTower, p)
}

func TestSelectPool_DeterministicAndSpread(t *testing.T) {
	r, err := NewRouter(DefaultConfig(), fakePools())
	require.NoError(t, err)

	seen := map[types.Pool]int{}
	for i := 0; i < 400; i++ {
		sig := []byte{byte(i), byte(i >> 8), 0x99}
		a, err := r.SelectPool(types.RarityRare, sig)
		require.NoError(t, err)
		b, err := r.SelectPool(types.RarityRare, sig)
		require.NoError(t, err)
		require.Equal(t, a, b)
		seen[a]++
	}
	require.Len(t, seen, 4)
}

func TestSelectPool_PerRarityOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ByRarity = map[types.Rarity]Weights{types.RarityLegendary: {types.PoolTower: 1}}
	r, err := NewRouter(cfg, fakePools())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		p, err := r.SelectPool(types.RarityLegendary, []byte{byte(i)})
		require.NoError(t, err)
		require.Equal(t, types.PoolTower, p)
	}
}

func TestNewRouter_RejectsBadWeights(t *testing.T) {
	_, err := NewRouter(Config{Default: Weights{}}, fakePools())
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	_, err = NewRouter(Config{Default: Weights{types.Pool(9): 1}}, fakePools())
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestMintFrom_WrapsFailures(t *testing.T) {
	pools := fakePools()
	pools[types.PoolSpell] = &fakePool{pool: types.PoolSpell, fail: errors.New("supply exhausted")}
	delete(pools, types.PoolTower)
	r, err := NewRouter(DefaultConfig(), pools)
	require.NoError(t, err)

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	id, err := r.MintFrom(types.PoolHero, to, types.RarityEpic)
	require.NoError(t, err)
	require.Equal(t, types.AssetID("hero-epic-1"), id)

	_, err = r.MintFrom(types.PoolSpell, to, types.RarityEpic)
	require.ErrorIs(t, err, types.ErrPoolMintFailed)
	require.Contains(t, err.Error(), "supply exhausted")

	_, err = r.MintFrom(types.PoolTower, to, types.RarityEpic)
	require.ErrorIs(t, err, types.ErrPoolMintFailed)
}

func TestParse_Weights(t *testing.T) {
	cfg, err := Parse([]byte(`
tables: []
poolWeights:
  default: {equipment: 2, hero: 1, spell: 1, tower: 0}
  legendary: {hero: 1}
`))
	require.NoError(t, err)
	require.Equal(t, uint64(4), cfg.Default.Total())
	require.Equal(t, Weights{types.PoolHero: 1}, cfg.WeightsFor(types.RarityLegendary))
	require.Equal(t, cfg.Default, cfg.WeightsFor(types.RarityRare))

	cfg, err = Parse([]byte(`tables: []`))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	_, err = Parse([]byte(`
poolWeights:
  mythic: {hero: 1}
  default: {dragon: 1, hero: 1}
`))
	require.ErrorIs(t, err, types.ErrInvalidRequest)
	require.Contains(t, err.Error(), `unknown pool "dragon"`)
	require.Contains(t, err.Error(), "poolWeights.mythic")
}
