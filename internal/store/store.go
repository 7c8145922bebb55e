package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	dbm "github.com/cosmos/cosmos-db"

	"ticketredemption/internal/types"
)

// Store is the durable key space of the application. All mutation goes through
// a Txn so that a request either lands as one batch or not at all.
type Store struct {
	db dbm.DB
}

func New(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewMem returns a Store over an in-memory database.
func NewMem() *Store {
	return New(dbm.NewMemDB())
}

// Open opens (or creates) an on-disk database under <home>/data.
func Open(home string, backend string) (*Store, error) {
	if backend == "" {
		backend = string(dbm.GoLevelDBBackend)
	}
	dir := filepath.Join(home, "data")
	db, err := dbm.NewDB("redemption", dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction whose reads fall through to the database.
func (s *Store) Begin() *Txn {
	return newTxn(dbReader{db: s.db}, s.flush)
}

// AppHash hashes the committed key space.
func (s *Store) AppHash() ([]byte, error) {
	return appHash(dbReader{db: s.db})
}

// LoadHeight returns the last committed block height and app hash.
func (s *Store) LoadHeight() (int64, []byte, error) {
	bz, err := s.db.Get(types.HeightKey)
	if err != nil {
		return 0, nil, fmt.Errorf("read height: %w", err)
	}
	var height int64
	if len(bz) == 8 {
		height = int64(binary.BigEndian.Uint64(bz))
	}
	hash, err := s.db.Get(types.AppHashKey)
	if err != nil {
		return 0, nil, fmt.Errorf("read app hash: %w", err)
	}
	return height, hash, nil
}

// SaveHeight records the committed block synchronously.
func (s *Store) SaveHeight(height int64, appHash []byte) error {
	b := s.db.NewBatch()
	defer b.Close()
	var bz [8]byte
	binary.BigEndian.PutUint64(bz[:], uint64(height))
	if err := b.Set(types.HeightKey, bz[:]); err != nil {
		return err
	}
	if err := b.Set(types.AppHashKey, appHash); err != nil {
		return err
	}
	return b.WriteSync()
}

func (s *Store) flush(writes map[string][]byte) error {
	if len(writes) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, k := range sortedKeys(writes) {
		v := writes[k]
		var err error
		if v == nil {
			err = b.Delete([]byte(k))
		} else {
			err = b.Set([]byte(k), v)
		}
		if err != nil {
			return fmt.Errorf("batch %x: %w", k, err)
		}
	}
	if err := b.Write(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

type reader interface {
	get(key []byte) ([]byte, error)
	iterate(prefix []byte, fn func(k, v []byte) error) error
}

type dbReader struct {
	db dbm.DB
}

func (r dbReader) get(key []byte) ([]byte, error) {
	return r.db.Get(key)
}

func (r dbReader) iterate(prefix []byte, fn func(k, v []byte) error) error {
	it, err := r.db.Iterator(prefixStart(prefix), prefixEnd(prefix))
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func prefixStart(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return prefix
}

// prefixEnd returns the smallest key greater than every key with prefix, or
// nil if no such key exists.
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appHash(r reader) ([]byte, error) {
	h := sha256.New()
	var lenBuf [4]byte
	err := r.iterate(nil, func(k, v []byte) error {
		if bytes.Equal(k, types.HeightKey) || bytes.Equal(k, types.AppHashKey) {
			return nil
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hash state: %w", err)
	}
	return h.Sum(nil), nil
}

// Txn is a write overlay over a parent view. Reads see the overlay first.
// A Txn may itself be the parent of nested transactions.
type Txn struct {
	parent reader
	flush  func(map[string][]byte) error

	mu     sync.RWMutex
	writes map[string][]byte // nil value marks a delete
	done   bool
}

func newTxn(parent reader, flush func(map[string][]byte) error) *Txn {
	return &Txn{parent: parent, flush: flush, writes: map[string][]byte{}}
}

// Begin starts a nested transaction that commits into t.
func (t *Txn) Begin() *Txn {
	return newTxn(t, t.apply)
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	bz, err := t.get(key)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(bz), nil
}

func (t *Txn) get(key []byte) ([]byte, error) {
	t.mu.RLock()
	v, ok := t.writes[string(key)]
	done := t.done
	t.mu.RUnlock()
	if done {
		return nil, fmt.Errorf("txn already finished")
	}
	if ok {
		return v, nil
	}
	return t.parent.get(key)
}

func (t *Txn) Has(key []byte) (bool, error) {
	bz, err := t.get(key)
	return bz != nil, err
}

func (t *Txn) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn already finished")
	}
	t.writes[string(key)] = bytes.Clone(value)
	return nil
}

func (t *Txn) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("txn already finished")
	}
	t.writes[string(key)] = nil
	return nil
}

// Iterate visits every live key with prefix in ascending order, merging the
// overlay over the parent view.
func (t *Txn) Iterate(prefix []byte, fn func(k, v []byte) error) error {
	return t.iterate(prefix, fn)
}

func (t *Txn) iterate(prefix []byte, fn func(k, v []byte) error) error {
	merged := map[string][]byte{}
	if err := t.parent.iterate(prefix, func(k, v []byte) error {
		merged[string(k)] = bytes.Clone(v)
		return nil
	}); err != nil {
		return err
	}

	t.mu.RLock()
	for k, v := range t.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	t.mu.RUnlock()

	for _, k := range sortedKeys(merged) {
		v := merged[k]
		if v == nil {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// AppHash hashes the key space as seen through the overlay.
func (t *Txn) AppHash() ([]byte, error) {
	return appHash(t)
}

// Commit publishes the overlay to the parent in one step.
func (t *Txn) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return fmt.Errorf("txn already finished")
	}
	t.done = true
	writes := t.writes
	t.writes = nil
	t.mu.Unlock()
	return t.flush(writes)
}

// Discard drops the overlay. Discarding a finished Txn is a no-op.
func (t *Txn) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.writes = nil
}

func (t *Txn) apply(writes map[string][]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("parent txn already finished")
	}
	for k, v := range writes {
		t.writes[k] = v
	}
	return nil
}
