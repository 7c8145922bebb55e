package pool

import (
	"fmt"
	"sort"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/entropy"
	"ticketredemption/internal/types"
)

// RewardPool mints one collectible of the given rarity to recipient.
type RewardPool interface {
	Mint(recipient common.Address, rarity types.Rarity) (types.AssetID, error)
}

// Weights assigns a relative selection weight to each pool. A pool with zero
// weight is never selected.
type Weights map[types.Pool]uint32

func Uniform() Weights {
	w := Weights{}
	for _, p := range types.Pools {
		w[p] = 1
	}
	return w
}

func (w Weights) Total() uint64 {
	var total uint64
	for _, v := range w {
		total += uint64(v)
	}
	return total
}

func (w Weights) Validate() error {
	for p := range w {
		if !p.Valid() {
			return types.ErrInvalidRequest.Wrapf("unknown pool %d", uint8(p))
		}
	}
	if w.Total() == 0 {
		return types.ErrInvalidRequest.Wrap("pool weights sum to zero")
	}
	return nil
}

func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, p := range types.Pools {
		if v, ok := w[p]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", p, v))
		}
	}
	return strings.Join(parts, ",")
}

// Config holds the default weights and optional per-rarity overrides.
type Config struct {
	Default  Weights                  `json:"default"`
	ByRarity map[types.Rarity]Weights `json:"byRarity,omitempty"`
}

func DefaultConfig() Config {
	return Config{Default: Uniform()}
}

func (c Config) Validate() error {
	if err := c.Default.Validate(); err != nil {
		return errorsmod.Wrap(err, "default")
	}
	rs := make([]types.Rarity, 0, len(c.ByRarity))
	for r := range c.ByRarity {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	for _, r := range rs {
		if r < types.RarityCommon || r > types.RarityLegendary {
			return types.ErrInvalidRequest.Wrapf("unknown rarity %d", uint8(r))
		}
		if err := c.ByRarity[r].Validate(); err != nil {
			return errorsmod.Wrap(err, r.String())
		}
	}
	return nil
}

// WeightsFor returns the weights governing rarity r.
func (c Config) WeightsFor(r types.Rarity) Weights {
	if w, ok := c.ByRarity[r]; ok {
		return w
	}
	if c.Default == nil {
		return Uniform()
	}
	return c.Default
}

// Router picks a pool for each resolved rarity and mints from it.
type Router struct {
	cfg   Config
	pools map[types.Pool]RewardPool
}

func NewRouter(cfg Config, pools map[types.Pool]RewardPool) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Router{cfg: cfg, pools: pools}, nil
}

// SelectPool derives a weighted pool choice from poolEntropy. The draw uses
// its own domain, so it does not correlate with the rarity roll taken from
// the same signature.
func (r *Router) SelectPool(rarity types.Rarity, poolEntropy []byte) (types.Pool, error) {
	w := r.cfg.WeightsFor(rarity)
	draw, err := entropy.PoolDraw(poolEntropy, w.Total())
	if err != nil {
		return 0, types.ErrInvalidRequest.Wrapf("pool draw: %v", err)
	}
	return Pick(w, draw)
}

// Pick walks the pools in their fixed order and returns the one whose
// cumulative weight range holds draw.
func Pick(w Weights, draw uint64) (types.Pool, error) {
	var acc uint64
	for _, p := range types.Pools {
		acc += uint64(w[p])
		if draw < acc {
			return p, nil
		}
	}
	return 0, types.ErrInvalidRequest.Wrapf("draw %d outside total weight %d", draw, acc)
}

// MintFrom mints one asset from pool. Any failure is reported as
// ErrPoolMintFailed.
func (r *Router) MintFrom(pool types.Pool, recipient common.Address, rarity types.Rarity) (types.AssetID, error) {
	rp, ok := r.pools[pool]
	if !ok || rp == nil {
		return "", types.ErrPoolMintFailed.Wrapf("%s pool is not wired", pool)
	}
	id, err := rp.Mint(recipient, rarity)
	if err != nil {
		return "", types.ErrPoolMintFailed.Wrapf("%s: %v", pool, err)
	}
	if id == "" {
		return "", types.ErrPoolMintFailed.Wrapf("%s returned an empty asset id", pool)
	}
	return id, nil
}
