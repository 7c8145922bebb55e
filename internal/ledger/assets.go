package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ticketredemption/internal/pool"
	"ticketredemption/internal/types"
)

// Asset is one minted collectible.
type Asset struct {
	ID     types.AssetID  `json:"id"`
	Owner  common.Address `json:"owner"`
	Serial uint64         `json:"serial"`
	Rarity types.Rarity   `json:"rarity"`
	Pool   types.Pool     `json:"pool"`
}

// AssetIDFor derives the id of the serial-th asset minted to owner from pool.
// Serials are per owner, so ids never depend on other accounts' activity.
func AssetIDFor(p types.Pool, owner common.Address, serial uint64) types.AssetID {
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], serial)
	return types.AssetID(crypto.Keccak256Hash([]byte{byte(p)}, owner.Bytes(), bz[:]).Hex())
}

// RewardPool mints into the asset registry on behalf of a single pool.
type RewardPool struct {
	kv   KVStore
	pool types.Pool
}

var _ pool.RewardPool = RewardPool{}

func NewRewardPool(kv KVStore, p types.Pool) RewardPool {
	return RewardPool{kv: kv, pool: p}
}

// RewardPools wires every pool over kv.
func RewardPools(kv KVStore) map[types.Pool]pool.RewardPool {
	out := make(map[types.Pool]pool.RewardPool, len(types.Pools))
	for _, p := range types.Pools {
		out[p] = NewRewardPool(kv, p)
	}
	return out
}

func (rp RewardPool) Mint(recipient common.Address, rarity types.Rarity) (types.AssetID, error) {
	if !rp.pool.Valid() {
		return "", fmt.Errorf("unknown pool %d", uint8(rp.pool))
	}
	if rarity < types.RarityCommon || rarity > types.RarityLegendary {
		return "", fmt.Errorf("unknown rarity %d", uint8(rarity))
	}
	last, err := getUint64(rp.kv, types.AssetSerialKey(recipient))
	if err != nil {
		return "", err
	}
	serial, err := addUint64(last, 1)
	if err != nil {
		return "", fmt.Errorf("asset serial: %w", err)
	}
	a := Asset{
		ID:     AssetIDFor(rp.pool, recipient, serial),
		Owner:  recipient,
		Serial: serial,
		Rarity: rarity,
		Pool:   rp.pool,
	}
	bz, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode asset: %w", err)
	}
	if err := rp.kv.Set(types.AssetKey(recipient, serial), bz); err != nil {
		return "", err
	}
	if err := setUint64(rp.kv, types.AssetSerialKey(recipient), serial); err != nil {
		return "", err
	}
	return a.ID, nil
}

// AssetsOf lists owner's assets in mint order.
func AssetsOf(kv KVStore, owner common.Address) ([]Asset, error) {
	var out []Asset
	err := kv.Iterate(types.AssetOwnerPrefix(owner), func(_, v []byte) error {
		var a Asset
		if err := json.Unmarshal(v, &a); err != nil {
			return fmt.Errorf("decode asset: %w", err)
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
