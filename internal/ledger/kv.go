package ledger

import (
	"encoding/binary"
	"fmt"
)

// KVStore is the transactional view the ledger reads and writes. store.Txn
// satisfies it.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Iterate(prefix []byte, fn func(k, v []byte) error) error
}

func getUint64(kv KVStore, key []byte) (uint64, error) {
	bz, err := kv.Get(key)
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, nil
	}
	v, err := decodeUint64(bz)
	if err != nil {
		return 0, fmt.Errorf("key %x: %w", key, err)
	}
	return v, nil
}

func decodeUint64(bz []byte) (uint64, error) {
	if len(bz) != 8 {
		return 0, fmt.Errorf("corrupt u64: %d bytes", len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}

func setUint64(kv KVStore, key []byte, v uint64) error {
	if v == 0 {
		return kv.Delete(key)
	}
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], v)
	return kv.Set(key, bz[:])
}

func addUint64(a, b uint64) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, fmt.Errorf("overflow: have=%d add=%d", a, b)
	}
	return a + b, nil
}
