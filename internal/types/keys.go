package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// ModuleName defines the module name and error codespace.
	ModuleName = "redemption"
)

var (
	// NonceKeyPrefix stores the redemption nonce: NonceKeyPrefix || addr(20).
	NonceKeyPrefix = []byte{0x01}

	// TicketKeyPrefix stores ticket balances: TicketKeyPrefix || addr(20) || tier(1).
	TicketKeyPrefix = []byte{0x02}

	// BurnedKeyPrefix stores tickets burned per sender: BurnedKeyPrefix || tier(1) || addr(20).
	// Keeping the sink tally per sender avoids a shared counter across accounts.
	BurnedKeyPrefix = []byte{0x03}

	// AssetKeyPrefix stores minted assets: AssetKeyPrefix || addr(20) || u64be(serial).
	AssetKeyPrefix = []byte{0x04}

	// AssetSerialKeyPrefix stores the next asset serial per recipient.
	AssetSerialKeyPrefix = []byte{0x05}

	// ParamsKey stores the JSON-encoded Params.
	ParamsKey = []byte{0x06}

	// TxNonceKeyPrefix stores the last accepted admin envelope nonce per signer.
	TxNonceKeyPrefix = []byte{0x07}

	// HeightKey and AppHashKey store the last committed block.
	HeightKey  = []byte{0x08}
	AppHashKey = []byte{0x09}
)

func NonceKey(addr common.Address) []byte {
	return append(append([]byte{}, NonceKeyPrefix...), addr.Bytes()...)
}

func TicketKey(addr common.Address, tier TicketType) []byte {
	bz := make([]byte, 0, 1+common.AddressLength+1)
	bz = append(bz, TicketKeyPrefix...)
	bz = append(bz, addr.Bytes()...)
	return append(bz, byte(tier))
}

func BurnedKey(tier TicketType, addr common.Address) []byte {
	bz := make([]byte, 0, 1+1+common.AddressLength)
	bz = append(bz, BurnedKeyPrefix...)
	bz = append(bz, byte(tier))
	return append(bz, addr.Bytes()...)
}

// BurnedTierPrefix is the iteration prefix for every sender's burn tally of a tier.
func BurnedTierPrefix(tier TicketType) []byte {
	return append(append([]byte{}, BurnedKeyPrefix...), byte(tier))
}

func AssetKey(owner common.Address, serial uint64) []byte {
	bz := make([]byte, 1+common.AddressLength+8)
	bz[0] = AssetKeyPrefix[0]
	copy(bz[1:], owner.Bytes())
	binary.BigEndian.PutUint64(bz[1+common.AddressLength:], serial)
	return bz
}

// AssetOwnerPrefix is the iteration prefix for every asset owned by addr.
func AssetOwnerPrefix(owner common.Address) []byte {
	return append(append([]byte{}, AssetKeyPrefix...), owner.Bytes()...)
}

func AssetSerialKey(owner common.Address) []byte {
	return append(append([]byte{}, AssetSerialKeyPrefix...), owner.Bytes()...)
}

func TxNonceKey(signer common.Address) []byte {
	return append(append([]byte{}, TxNonceKeyPrefix...), signer.Bytes()...)
}
