package codec

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/types"
)

// Transaction types.
const (
	TypeRedeem = "redemption/redeem"

	TypeSetTicketVerifier   = "admin/set_ticket_verifier"
	TypeSetRandomnessSigner = "admin/set_randomness_signer"
	TypeSetRarityTable      = "admin/set_rarity_table"
	TypeSetPoolWeights      = "admin/set_pool_weights"
	TypePause               = "admin/pause"
	TypeUnpause             = "admin/unpause"
	TypeMintTickets         = "admin/mint_tickets"
)

// TxEnvelope is the transaction container. CometBFT transactions are opaque
// bytes; ours are JSON.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Nonce is a decimal uint64 bound into the signature. For redeem txs it
	// is the nonce the authorization was signed at; for admin txs it must
	// increase per signer.
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"` // 0x address
	Sig    []byte `json:"sig,omitempty"`    // 65-byte EIP-191 signature, base64 in JSON
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, types.ErrInvalidRequest.Wrapf("invalid tx json: %v", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, types.ErrInvalidRequest.Wrap("missing tx.type")
	}
	return env, nil
}

// NewEnvelope marshals value into an unsigned envelope.
func NewEnvelope(typ string, value any, nonce uint64, signer common.Address) (TxEnvelope, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return TxEnvelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return TxEnvelope{
		Type:   typ,
		Value:  raw,
		Nonce:  strconv.FormatUint(nonce, 10),
		Signer: signer.Hex(),
	}, nil
}

func (env TxEnvelope) NonceValue() (uint64, error) {
	if env.Nonce == "" {
		return 0, types.ErrInvalidRequest.Wrap("missing tx.nonce")
	}
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return 0, types.ErrInvalidRequest.Wrapf("invalid tx.nonce %q", env.Nonce)
	}
	return n, nil
}

func (env TxEnvelope) SignerAddress() (common.Address, error) {
	if !common.IsHexAddress(env.Signer) {
		return common.Address{}, types.ErrInvalidRequest.Wrapf("invalid tx.signer %q", env.Signer)
	}
	return common.HexToAddress(env.Signer), nil
}

const txAuthDomain = "redemption/tx/v1"

// SignBytes is the message an envelope signer signs:
// DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value).
// The signer is normalized to its checksum form.
func (env TxEnvelope) SignBytes() []byte {
	signer := env.Signer
	if common.IsHexAddress(signer) {
		signer = common.HexToAddress(signer).Hex()
	}
	sum := sha256.Sum256(env.Value)
	out := make([]byte, 0, len(txAuthDomain)+1+len(env.Type)+1+len(env.Nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, txAuthDomain...)
	out = append(out, 0)
	out = append(out, env.Type...)
	out = append(out, 0)
	out = append(out, env.Nonce...)
	out = append(out, 0)
	out = append(out, signer...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func (env TxEnvelope) Encode() ([]byte, error) {
	return json.Marshal(env)
}

// ---- Redemption ----

type RedeemTx struct {
	Sender     string           `json:"sender"`
	TicketType types.TicketType `json:"ticketType"`
	Quantity   uint64           `json:"quantity"`
	AuthSig    []byte           `json:"authSig"`              // base64 in JSON
	Randomness [][]byte         `json:"randomness,omitempty"` // one signature per draw position
}

// ---- Admin ----

type SetAddressTx struct {
	Address string `json:"address"`
}

type SetRarityTableTx struct {
	TicketType types.TicketType `json:"ticketType"`
	Positions  rarity.TierTable `json:"positions"`
}

type SetPoolWeightsTx struct {
	pool.Config
}

type MintTicketsTx struct {
	To         string           `json:"to"`
	TicketType types.TicketType `json:"ticketType"`
	Amount     uint64           `json:"amount"`
}

// DecodeValue unmarshals env.Value into v.
func DecodeValue[T any](env TxEnvelope) (T, error) {
	var v T
	if len(env.Value) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return v, types.ErrInvalidRequest.Wrapf("bad %s value: %v", env.Type, err)
	}
	return v, nil
}

// ParseAddress parses a 0x hex address, rejecting the zero address.
func ParseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, types.ErrInvalidRequest.Wrapf("invalid %s %q", field, s)
	}
	a := common.HexToAddress(s)
	if a == (common.Address{}) {
		return common.Address{}, types.ErrInvalidRequest.Wrapf("%s must not be the zero address", field)
	}
	return a, nil
}
