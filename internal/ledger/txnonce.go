package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/types"
)

// AcceptTxNonce enforces strictly increasing envelope nonces per signer and
// records nonce as the new high-water mark.
func AcceptTxNonce(kv KVStore, signer common.Address, nonce uint64) error {
	last, err := getUint64(kv, types.TxNonceKey(signer))
	if err != nil {
		return err
	}
	if nonce <= last {
		return types.ErrUnauthorized.Wrapf("replayed tx.nonce: got %d last %d", nonce, last)
	}
	return setUint64(kv, types.TxNonceKey(signer), nonce)
}

func LastTxNonce(kv KVStore, signer common.Address) (uint64, error) {
	return getUint64(kv, types.TxNonceKey(signer))
}
