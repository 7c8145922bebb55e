package redemption

import (
	"ticketredemption/internal/signer"
	"ticketredemption/internal/types"
)

// PresignedSource serves randomness signatures shipped with the request,
// indexed by position-1.
type PresignedSource [][]byte

func (s PresignedSource) RandomnessSignature(p signer.RandomnessPayload) ([]byte, error) {
	if p.Position == 0 || p.Position > uint64(len(s)) {
		return nil, types.ErrInvalidRequest.Wrapf("no randomness signature for position %d", p.Position)
	}
	return s[p.Position-1], nil
}
