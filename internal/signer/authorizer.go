package signer

import (
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/types"
)

// Authorizer checks the two signature kinds against their own trusted slot.
// A zero address means the slot is empty.
type Authorizer struct {
	TicketVerifier   common.Address
	RandomnessSigner common.Address
}

// VerifyRedemption accepts sig only if the verifier signed exactly p and
// p.Nonce is the account's current nonce.
func (a Authorizer) VerifyRedemption(p RedemptionPayload, currentNonce uint64, sig []byte) error {
	if a.TicketVerifier == (common.Address{}) {
		return types.ErrConfigurationMissing.Wrap("ticket verifier")
	}
	if p.Nonce != currentNonce {
		return types.ErrStaleNonce.Wrapf("signed for nonce %d, current %d", p.Nonce, currentNonce)
	}
	got, err := RecoverHash(p.Hash(), sig)
	if err != nil {
		return err
	}
	if got != a.TicketVerifier {
		return types.ErrUnauthorized.Wrapf("redemption signed by %s", got.Hex())
	}
	return nil
}

func (a Authorizer) VerifyRandomness(p RandomnessPayload, sig []byte) error {
	if a.RandomnessSigner == (common.Address{}) {
		return types.ErrConfigurationMissing.Wrap("randomness signer")
	}
	got, err := RecoverHash(p.Hash(), sig)
	if err != nil {
		return err
	}
	if got != a.RandomnessSigner {
		return types.ErrUnauthorized.Wrapf("randomness for position %d signed by %s", p.Position, got.Hex())
	}
	return nil
}
