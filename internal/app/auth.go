package app

import (
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/codec"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/signer"
	"ticketredemption/internal/types"
)

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return types.ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return types.ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return types.ErrUnauthorized.Wrap("missing tx.sig")
	}
	if len(env.Sig) != signer.SignatureLength {
		return types.ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), signer.SignatureLength)
	}
	return nil
}

// requireSignedBy checks that want signed env and returns the envelope nonce.
func requireSignedBy(env codec.TxEnvelope, want common.Address) (uint64, error) {
	if err := requireSignedEnvelope(env); err != nil {
		return 0, err
	}
	nonce, err := env.NonceValue()
	if err != nil {
		return 0, err
	}
	claimed, err := env.SignerAddress()
	if err != nil {
		return 0, err
	}
	if claimed != want {
		return 0, types.ErrUnauthorized.Wrapf("tx signer mismatch: signer=%s want=%s", claimed.Hex(), want.Hex())
	}
	got, err := signer.RecoverMessage(env.SignBytes(), env.Sig)
	if err != nil {
		return 0, err
	}
	if got != want {
		return 0, types.ErrUnauthorized.Wrap("invalid signature")
	}
	return nonce, nil
}

// requireAdminAuth checks the envelope against the configured admin and
// consumes its tx nonce.
func requireAdminAuth(kv ledger.KVStore, env codec.TxEnvelope) (common.Address, error) {
	params, err := ledger.LoadParams(kv)
	if err != nil {
		return common.Address{}, err
	}
	if params.Admin == (common.Address{}) {
		return common.Address{}, types.ErrConfigurationMissing.Wrap("admin")
	}
	nonce, err := requireSignedBy(env, params.Admin)
	if err != nil {
		return common.Address{}, err
	}
	if err := ledger.AcceptTxNonce(kv, params.Admin, nonce); err != nil {
		return common.Address{}, err
	}
	return params.Admin, nil
}
