package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/types"
)

// DefaultBurnSink holds burned tickets. Nobody controls its key.
var DefaultBurnSink = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// Tickets is the fungible ticket ledger, one balance per (account, tier).
// Burned tickets are tallied per original holder under the sink.
type Tickets struct {
	kv   KVStore
	sink common.Address
}

func NewTickets(kv KVStore, sink common.Address) Tickets {
	if sink == (common.Address{}) {
		sink = DefaultBurnSink
	}
	return Tickets{kv: kv, sink: sink}
}

func (t Tickets) BurnSink() common.Address { return t.sink }

func (t Tickets) BalanceOf(account common.Address, tier types.TicketType) (uint64, error) {
	if !tier.Valid() {
		return 0, types.ErrUnknownTicketType.Wrapf("%d", uint8(tier))
	}
	return getUint64(t.kv, types.TicketKey(account, tier))
}

func (t Tickets) Mint(to common.Address, tier types.TicketType, amount uint64) error {
	if amount == 0 {
		return types.ErrInvalidRequest.Wrap("amount must be positive")
	}
	bal, err := t.BalanceOf(to, tier)
	if err != nil {
		return err
	}
	next, err := addUint64(bal, amount)
	if err != nil {
		return fmt.Errorf("ticket balance: %w", err)
	}
	return setUint64(t.kv, types.TicketKey(to, tier), next)
}

// TransferToBurnSink moves quantity tickets from account to the sink. Nothing
// is written unless the balance covers quantity.
func (t Tickets) TransferToBurnSink(account common.Address, tier types.TicketType, quantity uint64) error {
	bal, err := t.BalanceOf(account, tier)
	if err != nil {
		return err
	}
	if bal < quantity {
		return types.ErrInsufficientTicketBalance.Wrapf("have=%d need=%d", bal, quantity)
	}
	burned, err := t.BurnedBy(tier, account)
	if err != nil {
		return err
	}
	nextBurned, err := addUint64(burned, quantity)
	if err != nil {
		return fmt.Errorf("burn tally: %w", err)
	}
	if err := setUint64(t.kv, types.TicketKey(account, tier), bal-quantity); err != nil {
		return err
	}
	return setUint64(t.kv, types.BurnedKey(tier, account), nextBurned)
}

// BurnedBy is the number of tier tickets account has sent to the sink.
func (t Tickets) BurnedBy(tier types.TicketType, account common.Address) (uint64, error) {
	return getUint64(t.kv, types.BurnedKey(tier, account))
}

// BurnedTotal is the sink's balance of tier.
func (t Tickets) BurnedTotal(tier types.TicketType) (uint64, error) {
	var total uint64
	err := t.kv.Iterate(types.BurnedTierPrefix(tier), func(_, v []byte) error {
		n, err := decodeUint64(v)
		if err != nil {
			return err
		}
		total, err = addUint64(total, n)
		return err
	})
	return total, err
}
