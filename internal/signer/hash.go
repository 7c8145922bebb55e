package signer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ticketredemption/internal/types"
)

// SignatureLength is r || s || v.
const SignatureLength = crypto.SignatureLength

// RedemptionPayload is the tuple a ticket verifier signs.
type RedemptionPayload struct {
	Sender     common.Address
	Contract   common.Address
	Quantity   uint64
	TicketType types.TicketType
	Nonce      uint64
}

// Hash is keccak256(abi.encodePacked(address, address, uint256, uint256, uint256)).
func (p RedemptionPayload) Hash() common.Hash {
	return crypto.Keccak256Hash(
		p.Sender.Bytes(),
		p.Contract.Bytes(),
		uint256(p.Quantity),
		uint256(uint64(p.TicketType)),
		uint256(p.Nonce),
	)
}

// RandomnessPayload is the tuple the randomness signer signs for one draw.
// SessionID is the nonce consumed by the redemption.
type RandomnessPayload struct {
	Sender    common.Address
	Contract  common.Address
	Position  uint64
	SessionID uint64
}

func (p RandomnessPayload) Hash() common.Hash {
	return crypto.Keccak256Hash(
		p.Sender.Bytes(),
		p.Contract.Bytes(),
		uint256(p.Position),
		uint256(p.SessionID),
	)
}

func uint256(v uint64) []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint64(out[24:], v)
	return out
}

// SignHash produces an EIP-191 personal-message signature over h with v in
// {27,28}, the form wallets return from signMessage.
func SignHash(h common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	return SignMessage(h.Bytes(), key)
}

func SignMessage(msg []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverHash returns the address that signed h as a personal message.
func RecoverHash(h common.Hash, sig []byte) (common.Address, error) {
	return RecoverMessage(h.Bytes(), sig)
}

// RecoverMessage accepts v in {0,1,27,28} and rejects malleable (high-s)
// signatures.
func RecoverMessage(msg []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, types.ErrUnauthorized.Wrapf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	s := make([]byte, SignatureLength)
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	v := s[crypto.RecoveryIDOffset]
	r, ss := new(big.Int).SetBytes(s[:32]), new(big.Int).SetBytes(s[32:64])
	if !crypto.ValidateSignatureValues(v, r, ss, true) {
		return common.Address{}, types.ErrUnauthorized.Wrap("invalid signature values")
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return common.Address{}, types.ErrUnauthorized.Wrapf("recover: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
