package ledger

import (
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/types"
)

const (
	DefaultMaxQuantity uint64 = 10

	// maxQuantityCap bounds per-request work: quantity*drawCount mints in
	// a single transaction.
	maxQuantityCap uint64 = 1_000
)

// Params is the admin-controlled configuration shared by every redemption.
// A zero address means the slot is not configured.
type Params struct {
	Admin            common.Address `json:"admin"`
	Contract         common.Address `json:"contract"`
	BurnSink         common.Address `json:"burnSink"`
	TicketVerifier   common.Address `json:"ticketVerifier"`
	RandomnessSigner common.Address `json:"randomnessSigner"`

	Paused      bool          `json:"paused"`
	MaxQuantity uint64        `json:"maxQuantity"`
	RarityTable *rarity.Table `json:"rarityTable"`
	PoolWeights pool.Config   `json:"poolWeights"`
}

func DefaultParams() Params {
	return Params{
		BurnSink:    DefaultBurnSink,
		MaxQuantity: DefaultMaxQuantity,
		RarityTable: rarity.Defaults(),
		PoolWeights: pool.DefaultConfig(),
	}
}

func (p Params) Validate() error {
	if p.BurnSink == (common.Address{}) {
		return types.ErrInvalidRequest.Wrap("burn_sink must be set")
	}
	if p.MaxQuantity == 0 || p.MaxQuantity > maxQuantityCap {
		return types.ErrInvalidRequest.Wrapf("max_quantity must be in [1,%d]", maxQuantityCap)
	}
	if err := p.PoolWeights.Validate(); err != nil {
		return errorsmod.Wrap(err, "pool_weights")
	}
	return nil
}

// Ready reports the first missing piece of configuration a redemption of tier
// needs, as ErrConfigurationMissing.
func (p Params) Ready(tier types.TicketType) error {
	if p.TicketVerifier == (common.Address{}) {
		return types.ErrConfigurationMissing.Wrap("ticket verifier")
	}
	if p.RandomnessSigner == (common.Address{}) {
		return types.ErrConfigurationMissing.Wrap("randomness signer")
	}
	if !p.RarityTable.Configured(tier) {
		return types.ErrConfigurationMissing.Wrapf("rarity table for %s", tier)
	}
	return nil
}

// LoadParams returns the stored params, or defaults if none were stored.
func LoadParams(kv KVStore) (Params, error) {
	bz, err := kv.Get(types.ParamsKey)
	if err != nil {
		return Params{}, err
	}
	if bz == nil {
		return DefaultParams(), nil
	}
	p := Params{RarityTable: rarity.NewTable()}
	if err := json.Unmarshal(bz, &p); err != nil {
		return Params{}, fmt.Errorf("decode params: %w", err)
	}
	if p.RarityTable == nil {
		p.RarityTable = rarity.NewTable()
	}
	if p.PoolWeights.Default == nil {
		p.PoolWeights.Default = pool.Uniform()
	}
	return p, nil
}

func SaveParams(kv KVStore, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return kv.Set(types.ParamsKey, bz)
}
