package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"ticketredemption/internal/audit"
	"ticketredemption/internal/codec"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/redemption"
	"ticketredemption/internal/store"
	"ticketredemption/internal/types"
)

const (
	AppVersion uint64 = 1
)

// Options wires the application's collaborators. Only Store is required.
type Options struct {
	Store *store.Store

	// Genesis is written by InitChain unless the chain's app_state overrides
	// it. Defaults to ledger.DefaultParams().
	Genesis *ledger.Params

	// Source serves randomness for redeem txs that carry none. Nil means
	// every redeem tx must ship its own randomness signatures.
	Source redemption.EntropySource

	Audit  audit.Sink
	Logger log.Logger
}

type RedemptionApp struct {
	*abci.BaseApplication

	store   *store.Store
	genesis ledger.Params
	source  redemption.EntropySource
	sink    audit.Sink
	base    log.Logger
	logger  log.Logger

	mu       sync.Mutex
	block    *store.Txn // uncommitted block state, nil between blocks
	height   int64
	lastHash []byte
}

func New(opts Options) (*RedemptionApp, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("app: store is required")
	}
	genesis := ledger.DefaultParams()
	if opts.Genesis != nil {
		genesis = *opts.Genesis
	}
	if err := genesis.Validate(); err != nil {
		return nil, errorsmod.Wrap(err, "genesis params")
	}
	sink := opts.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	height, hash, err := opts.Store.LoadHeight()
	if err != nil {
		return nil, err
	}
	return &RedemptionApp{
		BaseApplication: abci.NewBaseApplication(),
		store:           opts.Store,
		genesis:         genesis,
		source:          opts.Source,
		sink:            sink,
		base:            logger,
		logger:          logger.With("module", "abci"),
		height:          height,
		lastHash:        hash,
	}, nil
}

func (a *RedemptionApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "ticket redemption",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

// CheckTx performs the stateless checks: envelope shape, known type and the
// envelope signature. Nonces and balances are checked when the tx executes.
func (a *RedemptionApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err == nil {
		err = checkEnvelope(env)
	}
	if err != nil {
		codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
		return &abci.CheckTxResponse{Codespace: codespace, Code: code, Log: logMsg}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func checkEnvelope(env codec.TxEnvelope) error {
	if env.Type == codec.TypeRedeem {
		msg, err := codec.DecodeValue[codec.RedeemTx](env)
		if err != nil {
			return err
		}
		sender, err := codec.ParseAddress("sender", msg.Sender)
		if err != nil {
			return err
		}
		_, err = requireSignedBy(env, sender)
		return err
	}
	if !isAdminType(env.Type) {
		return types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)
	}
	signer, err := env.SignerAddress()
	if err != nil {
		return err
	}
	_, err = requireSignedBy(env, signer)
	return err
}

// InitChain stores the genesis params. A non-empty app_state is decoded as a
// params document over the configured genesis.
func (a *RedemptionApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	params, err := genesisParams(a.genesis, req.AppStateBytes)
	if err != nil {
		return nil, err
	}
	blk := a.blockTxn()
	if err := ledger.SaveParams(blk, params); err != nil {
		return nil, err
	}
	hash, err := blk.AppHash()
	if err != nil {
		return nil, err
	}
	a.logger.Info("chain initialized", "chain_id", req.ChainId, "admin", params.Admin.Hex(), "contract", params.Contract.Hex())
	return &abci.InitChainResponse{AppHash: hash}, nil
}

// genesisParams overlays appState onto a deep copy of base. Each top-level
// field present in appState replaces the base value whole: a rarityTable
// lists every configured slot and poolWeights every weight.
func genesisParams(base ledger.Params, appState []byte) (ledger.Params, error) {
	if len(appState) == 0 {
		return base, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(appState, &fields); err != nil {
		return ledger.Params{}, types.ErrInvalidRequest.Wrapf("decode app_state: %v", err)
	}

	bz, err := json.Marshal(base)
	if err != nil {
		return ledger.Params{}, fmt.Errorf("encode genesis: %w", err)
	}
	p := ledger.Params{RarityTable: rarity.NewTable()}
	if err := json.Unmarshal(bz, &p); err != nil {
		return ledger.Params{}, fmt.Errorf("decode genesis: %w", err)
	}
	if _, ok := fields["rarityTable"]; ok {
		p.RarityTable = rarity.NewTable()
	}
	if _, ok := fields["poolWeights"]; ok {
		p.PoolWeights = pool.Config{}
	}
	if err := json.Unmarshal(appState, &p); err != nil {
		return ledger.Params{}, types.ErrInvalidRequest.Wrapf("decode app_state: %v", err)
	}
	if p.RarityTable == nil {
		p.RarityTable = rarity.NewTable()
	}
	return p, nil
}

func (a *RedemptionApp) FinalizeBlock(ctx context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	blk := a.blockTxn()
	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		txResults = append(txResults, a.deliverTx(ctx, blk, txBytes, req.Height))
	}

	hash, err := blk.AppHash()
	if err != nil {
		return nil, err
	}
	a.height = req.Height
	a.lastHash = hash

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

// Commit flushes the block to disk and records the height. An error halts
// the node.
func (a *RedemptionApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.block != nil {
		if err := a.block.Commit(); err != nil {
			return nil, fmt.Errorf("commit block %d: %w", a.height, err)
		}
		a.block = nil
	}
	if err := a.store.SaveHeight(a.height, a.lastHash); err != nil {
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *RedemptionApp) blockTxn() *store.Txn {
	if a.block == nil {
		a.block = a.store.Begin()
	}
	return a.block
}

// deliverTx runs one tx in its own child transaction of the block, so a
// failed tx leaves no trace in the block state.
func (a *RedemptionApp) deliverTx(ctx context.Context, blk *store.Txn, txBytes []byte, height int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(err)
	}

	txn := blk.Begin()
	defer txn.Discard()
	engine := redemption.New(redemption.NewStoreBackend(txn.Begin), a.source, a.sink, a.base)

	var res *abci.ExecTxResult
	if env.Type == codec.TypeRedeem {
		res, err = a.deliverRedeem(ctx, engine, env, height)
	} else {
		res, err = a.deliverAdmin(txn, engine, env)
	}
	if err != nil {
		return errResult(err)
	}
	if err := txn.Commit(); err != nil {
		return errResult(fmt.Errorf("commit tx: %w", err))
	}
	return res
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Codespace: codespace, Code: code, Log: logMsg}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{event(typ, attrs)},
	}
}

func event(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}
