package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/types"
)

// Nonces is the per-account redemption counter. AdvanceNonce is the only
// mutator.
type Nonces struct {
	kv KVStore
}

func NewNonces(kv KVStore) Nonces {
	return Nonces{kv: kv}
}

func (n Nonces) CurrentNonce(account common.Address) (uint64, error) {
	return getUint64(n.kv, types.NonceKey(account))
}

// AdvanceNonce increments the counter by exactly one and returns the new value.
func (n Nonces) AdvanceNonce(account common.Address) (uint64, error) {
	cur, err := n.CurrentNonce(account)
	if err != nil {
		return 0, err
	}
	next, err := addUint64(cur, 1)
	if err != nil {
		return 0, fmt.Errorf("nonce for %s: %w", account, err)
	}
	if err := setUint64(n.kv, types.NonceKey(account), next); err != nil {
		return 0, err
	}
	return next, nil
}
