package app

import (
	"context"
	"encoding/json"
	"strings"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/ledger"
	"ticketredemption/internal/store"
	"ticketredemption/internal/types"
)

// Query serves committed state.
//
// Paths:
//   - /nonce/<addr>
//   - /tickets/<addr>
//   - /assets/<addr>
//   - /params
//   - /burned
func (a *RedemptionApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	height := a.height
	a.mu.Unlock()

	txn := a.store.Begin()
	defer txn.Discard()

	v, err := query(txn, strings.TrimSpace(req.Path))
	if err != nil {
		codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
		return &abci.QueryResponse{Codespace: codespace, Code: code, Log: logMsg, Height: height}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return &abci.QueryResponse{Code: 1, Log: err.Error(), Height: height}, nil
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: height}, nil
}

func query(txn *store.Txn, path string) (any, error) {
	switch {
	case path == "/params":
		return ledger.LoadParams(txn)

	case path == "/burned":
		params, err := ledger.LoadParams(txn)
		if err != nil {
			return nil, err
		}
		tickets := ledger.NewTickets(txn, params.BurnSink)
		out := map[string]any{"burnSink": params.BurnSink.Hex()}
		totals := map[string]uint64{}
		for _, tier := range types.TicketTypes {
			n, err := tickets.BurnedTotal(tier)
			if err != nil {
				return nil, err
			}
			totals[tier.String()] = n
		}
		out["burned"] = totals
		return out, nil

	case strings.HasPrefix(path, "/nonce/"):
		addr, err := queryAddress(path, "/nonce/")
		if err != nil {
			return nil, err
		}
		n, err := ledger.NewNonces(txn).CurrentNonce(addr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"address": addr.Hex(), "nonce": n}, nil

	case strings.HasPrefix(path, "/tickets/"):
		addr, err := queryAddress(path, "/tickets/")
		if err != nil {
			return nil, err
		}
		params, err := ledger.LoadParams(txn)
		if err != nil {
			return nil, err
		}
		tickets := ledger.NewTickets(txn, params.BurnSink)
		balances := map[string]uint64{}
		for _, tier := range types.TicketTypes {
			n, err := tickets.BalanceOf(addr, tier)
			if err != nil {
				return nil, err
			}
			balances[tier.String()] = n
		}
		return map[string]any{"address": addr.Hex(), "balances": balances}, nil

	case strings.HasPrefix(path, "/assets/"):
		addr, err := queryAddress(path, "/assets/")
		if err != nil {
			return nil, err
		}
		assets, err := ledger.AssetsOf(txn, addr)
		if err != nil {
			return nil, err
		}
		if assets == nil {
			assets = []ledger.Asset{}
		}
		return map[string]any{"address": addr.Hex(), "assets": assets}, nil

	default:
		return nil, types.ErrInvalidRequest.Wrapf("unknown query path %q", path)
	}
}

func queryAddress(path, prefix string) (common.Address, error) {
	raw := strings.TrimPrefix(path, prefix)
	if !common.IsHexAddress(raw) {
		return common.Address{}, types.ErrInvalidRequest.Wrapf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}
