package redemption

import (
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/signer"
	"ticketredemption/internal/store"
	"ticketredemption/internal/types"
)

// NonceStore is the per-account redemption counter.
type NonceStore interface {
	CurrentNonce(account common.Address) (uint64, error)
	AdvanceNonce(account common.Address) (uint64, error)
}

// TicketLedger holds fungible ticket balances.
type TicketLedger interface {
	BalanceOf(account common.Address, tier types.TicketType) (uint64, error)
	TransferToBurnSink(account common.Address, tier types.TicketType, quantity uint64) error
}

// EntropySource supplies the randomness signature for one draw.
type EntropySource interface {
	RandomnessSignature(p signer.RandomnessPayload) ([]byte, error)
}

// State is one transactional view. Nothing written through it is visible to
// others until Commit; Discard after Commit is a no-op.
type State interface {
	Params() (ledger.Params, error)
	SetParams(p ledger.Params) error
	Nonces() NonceStore
	Tickets(burnSink common.Address) TicketLedger
	Pools() map[types.Pool]pool.RewardPool
	Commit() error
	Discard()
}

type Backend interface {
	Begin() (State, error)
}

// StoreBackend runs redemptions against the KV ledger. begin decides where a
// transaction commits: straight to disk (Store.Begin) or into an enclosing
// block transaction (Txn.Begin).
type StoreBackend struct {
	begin func() *store.Txn
}

func NewStoreBackend(begin func() *store.Txn) *StoreBackend {
	return &StoreBackend{begin: begin}
}

func (b *StoreBackend) Begin() (State, error) {
	return &storeState{txn: b.begin()}, nil
}

type storeState struct {
	txn *store.Txn
}

func (s *storeState) Params() (ledger.Params, error) { return ledger.LoadParams(s.txn) }

func (s *storeState) SetParams(p ledger.Params) error { return ledger.SaveParams(s.txn, p) }

func (s *storeState) Nonces() NonceStore { return ledger.NewNonces(s.txn) }

func (s *storeState) Tickets(burnSink common.Address) TicketLedger {
	return ledger.NewTickets(s.txn, burnSink)
}

func (s *storeState) Pools() map[types.Pool]pool.RewardPool { return ledger.RewardPools(s.txn) }

func (s *storeState) Commit() error { return s.txn.Commit() }

func (s *storeState) Discard() { s.txn.Discard() }
