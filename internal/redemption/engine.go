package redemption

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/audit"
	"ticketredemption/internal/entropy"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/signer"
	"ticketredemption/internal/types"
)

// Phase is the state of one redemption.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseAuthorizing Phase = "authorizing"
	PhaseConsuming   Phase = "consuming"
	PhaseDrawing     Phase = "drawing"
	PhaseAllocating  Phase = "allocating"
	PhaseCompleted   Phase = "completed"
	PhaseAborted     Phase = "aborted"
)

// Request asks to burn Quantity tickets of TicketType for Quantity*drawCount
// collectibles. AuthSignature must be the verifier's signature over the
// request at NonceAtSigning.
type Request struct {
	Sender         common.Address
	TicketType     types.TicketType
	Quantity       uint64
	NonceAtSigning uint64
	AuthSignature  []byte

	// Randomness optionally carries one randomness signature per draw
	// position. When empty the engine's own source is asked.
	Randomness [][]byte

	// Height is recorded in the audit trail only.
	Height int64
}

// Draw is one allocated card.
type Draw struct {
	Position      int           `json:"position"`
	TablePosition int           `json:"tablePosition"`
	Entropy       uint64        `json:"entropy"`
	Rarity        types.Rarity  `json:"rarity"`
	Pool          types.Pool    `json:"pool"`
	AssetID       types.AssetID `json:"assetId"`
}

type Result struct {
	Sender     common.Address   `json:"sender"`
	TicketType types.TicketType `json:"ticketType"`
	Quantity   uint64           `json:"quantity"`
	NonceUsed  uint64           `json:"nonceUsed"`
	Nonce      uint64           `json:"nonce"`
	Draws      []Draw           `json:"draws"`
}

// AuditRecord converts r into the audit trail form.
func (r Result) AuditRecord(height int64, at time.Time) audit.Record {
	draws := make([]audit.Draw, 0, len(r.Draws))
	for _, d := range r.Draws {
		draws = append(draws, audit.Draw{Position: d.Position, Rarity: d.Rarity, Pool: d.Pool, AssetID: d.AssetID})
	}
	return audit.Record{
		Sender:     r.Sender,
		TicketType: r.TicketType,
		Quantity:   r.Quantity,
		NonceUsed:  r.NonceUsed,
		Height:     height,
		Draws:      draws,
		CreatedAt:  at,
	}
}

// Engine turns authorized ticket burns into minted collectibles. Requests for
// one account run one at a time; different accounts proceed in parallel.
type Engine struct {
	backend Backend
	source  EntropySource
	sink    audit.Sink
	logger  log.Logger
	now     func() time.Time

	locks   accountLocks
	adminMu sync.Mutex
}

// New builds an engine. source may be nil when every request carries its own
// randomness; sink may be nil to skip auditing.
func New(backend Backend, source EntropySource, sink audit.Sink, logger log.Logger) *Engine {
	if sink == nil {
		sink = audit.Nop{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		backend: backend,
		source:  source,
		sink:    sink,
		logger:  logger.With("module", types.ModuleName),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// run tracks one redemption through its phases.
type run struct {
	logger   log.Logger
	phase    Phase
	position int
}

func (r *run) enter(p Phase, position int) {
	r.phase, r.position = p, position
	if position > 0 {
		r.logger.Debug("redemption phase", "phase", string(p), "position", position)
		return
	}
	r.logger.Debug("redemption phase", "phase", string(p))
}

// Redeem executes req atomically: on any error no nonce advance, burn or mint
// is observable.
func (e *Engine) Redeem(ctx context.Context, req Request) (res Result, err error) {
	r := &run{
		logger: e.logger.With("sender", req.Sender.Hex(), "ticket_type", req.TicketType.String(), "quantity", req.Quantity),
		phase:  PhaseIdle,
	}
	defer func() {
		if err != nil {
			failed, at := r.phase, r.position
			r.enter(PhaseAborted, 0)
			codespace, code, _ := errorsmod.ABCIInfo(err, false)
			r.logger.Info("redemption aborted", "phase", string(failed), "position", at, "codespace", codespace, "code", code, "err", err.Error())
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !req.TicketType.Valid() {
		return Result{}, types.ErrUnknownTicketType.Wrapf("%d", uint8(req.TicketType))
	}
	if req.Sender == (common.Address{}) {
		return Result{}, types.ErrInvalidRequest.Wrap("missing sender")
	}
	if req.Quantity == 0 {
		return Result{}, types.ErrInvalidRequest.Wrap("quantity must be at least 1")
	}

	unlock := e.locks.lock(req.Sender)
	defer unlock()

	st, err := e.backend.Begin()
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}
	defer st.Discard()

	params, err := st.Params()
	if err != nil {
		return Result{}, err
	}
	if params.Paused {
		return Result{}, types.ErrPaused
	}
	if req.Quantity > params.MaxQuantity {
		return Result{}, types.ErrInvalidRequest.Wrapf("quantity %d exceeds max %d", req.Quantity, params.MaxQuantity)
	}
	if err := params.Ready(req.TicketType); err != nil {
		return Result{}, err
	}
	drawCount := req.TicketType.DrawCount()
	total := int(req.Quantity) * drawCount
	source, err := e.sourceFor(req, total)
	if err != nil {
		return Result{}, err
	}

	r.enter(PhaseAuthorizing, 0)
	auth := signer.Authorizer{TicketVerifier: params.TicketVerifier, RandomnessSigner: params.RandomnessSigner}
	nonces := st.Nonces()
	current, err := nonces.CurrentNonce(req.Sender)
	if err != nil {
		return Result{}, err
	}
	payload := signer.RedemptionPayload{
		Sender:     req.Sender,
		Contract:   params.Contract,
		Quantity:   req.Quantity,
		TicketType: req.TicketType,
		Nonce:      req.NonceAtSigning,
	}
	if err := auth.VerifyRedemption(payload, current, req.AuthSignature); err != nil {
		return Result{}, err
	}

	r.enter(PhaseConsuming, 0)
	tickets := st.Tickets(params.BurnSink)
	balance, err := tickets.BalanceOf(req.Sender, req.TicketType)
	if err != nil {
		return Result{}, err
	}
	if balance < req.Quantity {
		return Result{}, types.ErrInsufficientTicketBalance.Wrapf("have=%d need=%d", balance, req.Quantity)
	}
	nonceUsed := current
	next, err := nonces.AdvanceNonce(req.Sender)
	if err != nil {
		return Result{}, err
	}
	if err := tickets.TransferToBurnSink(req.Sender, req.TicketType, req.Quantity); err != nil {
		return Result{}, err
	}

	router, err := pool.NewRouter(params.PoolWeights, st.Pools())
	if err != nil {
		return Result{}, err
	}

	res = Result{
		Sender:     req.Sender,
		TicketType: req.TicketType,
		Quantity:   req.Quantity,
		NonceUsed:  nonceUsed,
		Nonce:      next,
		Draws:      make([]Draw, 0, total),
	}
	seen := make(map[string]int, total)
	for p := 1; p <= total; p++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		r.enter(PhaseDrawing, p)
		d, sig, err := e.roll(params, auth, source, seen, req, nonceUsed, p)
		if err != nil {
			return Result{}, err
		}
		r.enter(PhaseAllocating, p)
		if d.Pool, err = router.SelectPool(d.Rarity, sig); err != nil {
			return Result{}, err
		}
		if d.AssetID, err = router.MintFrom(d.Pool, req.Sender, d.Rarity); err != nil {
			return Result{}, err
		}
		res.Draws = append(res.Draws, d)
	}

	if err := st.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	r.enter(PhaseCompleted, 0)

	if err := e.sink.Record(ctx, res.AuditRecord(req.Height, e.now())); err != nil {
		r.logger.Error("audit record failed", "nonce_used", nonceUsed, "err", err.Error())
	}
	r.logger.Info("redemption completed", "nonce_used", nonceUsed, "draws", len(res.Draws))
	return res, nil
}

// roll obtains and checks the randomness for one position and resolves its
// rarity. The signature is returned for pool selection.
func (e *Engine) roll(
	params ledger.Params,
	auth signer.Authorizer,
	source EntropySource,
	seen map[string]int,
	req Request,
	sessionID uint64,
	position int,
) (Draw, []byte, error) {
	rp := signer.RandomnessPayload{
		Sender:    req.Sender,
		Contract:  params.Contract,
		Position:  uint64(position),
		SessionID: sessionID,
	}
	sig, err := source.RandomnessSignature(rp)
	if err != nil {
		return Draw{}, nil, errorsmod.Wrapf(err, "randomness for position %d", position)
	}
	if prev, ok := seen[string(sig)]; ok {
		return Draw{}, nil, types.ErrEntropyReused.Wrapf("positions %d and %d", prev, position)
	}
	seen[string(sig)] = position
	if err := auth.VerifyRandomness(rp, sig); err != nil {
		return Draw{}, nil, err
	}

	value, err := entropy.RarityRoll(sig)
	if err != nil {
		return Draw{}, nil, types.ErrEntropyOutOfRange.Wrap(err.Error())
	}
	tablePos := (position-1)%req.TicketType.DrawCount() + 1
	rarity, err := params.RarityTable.Resolve(req.TicketType, tablePos, value)
	if err != nil {
		return Draw{}, nil, err
	}
	return Draw{
		Position:      position,
		TablePosition: tablePos,
		Entropy:       value,
		Rarity:        rarity,
	}, sig, nil
}

func (e *Engine) sourceFor(req Request, total int) (EntropySource, error) {
	if len(req.Randomness) > 0 {
		if len(req.Randomness) != total {
			return nil, types.ErrInvalidRequest.Wrapf("got %d randomness signatures, want %d", len(req.Randomness), total)
		}
		return PresignedSource(req.Randomness), nil
	}
	if e.source == nil {
		return nil, types.ErrConfigurationMissing.Wrap("randomness source")
	}
	return e.source, nil
}

// CurrentNonce reads the committed nonce of account.
func (e *Engine) CurrentNonce(account common.Address) (uint64, error) {
	st, err := e.backend.Begin()
	if err != nil {
		return 0, err
	}
	defer st.Discard()
	return st.Nonces().CurrentNonce(account)
}
