package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is a secp256k1 signing key.
type Key struct {
	priv *ecdsa.PrivateKey
}

func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{priv: priv}, nil
}

// KeyFromHex parses a hex private key, with or without 0x.
func KeyFromHex(s string) (*Key, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return &Key{priv: priv}, nil
}

func (k *Key) Address() common.Address {
	return crypto.PubkeyToAddress(k.priv.PublicKey)
}

func (k *Key) Hex() string {
	return "0x" + common.Bytes2Hex(crypto.FromECDSA(k.priv))
}

func (k *Key) SignHash(h common.Hash) ([]byte, error) {
	return SignHash(h, k.priv)
}

func (k *Key) SignMessage(msg []byte) ([]byte, error) {
	return SignMessage(msg, k.priv)
}

// Oracle answers randomness requests with a locally held signer key.
type Oracle struct {
	key *Key
}

func NewOracle(key *Key) *Oracle {
	return &Oracle{key: key}
}

func (o *Oracle) Address() common.Address {
	return o.key.Address()
}

func (o *Oracle) RandomnessSignature(p RandomnessPayload) ([]byte, error) {
	return o.key.SignHash(p.Hash())
}
