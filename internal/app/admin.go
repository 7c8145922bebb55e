package app

import (
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"

	"ticketredemption/internal/codec"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/redemption"
	"ticketredemption/internal/store"
	"ticketredemption/internal/types"
)

func isAdminType(typ string) bool {
	switch typ {
	case codec.TypeSetTicketVerifier,
		codec.TypeSetRandomnessSigner,
		codec.TypeSetRarityTable,
		codec.TypeSetPoolWeights,
		codec.TypePause,
		codec.TypeUnpause,
		codec.TypeMintTickets:
		return true
	}
	return false
}

// deliverAdmin runs an admin-signed tx. The admin tx nonce is consumed in
// txn, so it only sticks if the whole tx succeeds.
func (a *RedemptionApp) deliverAdmin(txn *store.Txn, engine *redemption.Engine, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if !isAdminType(env.Type) {
		return nil, types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)
	}
	admin, err := requireAdminAuth(txn, env)
	if err != nil {
		return nil, err
	}
	logger := a.logger.With("tx", env.Type, "admin", admin.Hex())

	switch env.Type {
	case codec.TypeSetTicketVerifier, codec.TypeSetRandomnessSigner:
		msg, err := codec.DecodeValue[codec.SetAddressTx](env)
		if err != nil {
			return nil, err
		}
		addr, err := codec.ParseAddress("address", msg.Address)
		if err != nil {
			return nil, err
		}
		evType := types.EventTypeVerifierUpdated
		if env.Type == codec.TypeSetTicketVerifier {
			err = engine.SetTicketVerifier(addr)
		} else {
			evType = types.EventTypeRandomnessSignerSet
			err = engine.SetRandomnessSigner(addr)
		}
		if err != nil {
			return nil, err
		}
		return okEvent(evType, map[string]string{types.AttributeAddress: addr.Hex()}), nil

	case codec.TypeSetRarityTable:
		msg, err := codec.DecodeValue[codec.SetRarityTableTx](env)
		if err != nil {
			return nil, err
		}
		if err := engine.SetRarityTable(msg.TicketType, msg.Positions); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeRarityTableUpdated, map[string]string{
			types.AttributeTicketType: msg.TicketType.String(),
		}), nil

	case codec.TypeSetPoolWeights:
		msg, err := codec.DecodeValue[codec.SetPoolWeightsTx](env)
		if err != nil {
			return nil, err
		}
		if err := engine.SetPoolWeights(msg.Config); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypePoolWeightsUpdated, map[string]string{
			"default": msg.Default.String(),
		}), nil

	case codec.TypePause:
		if err := engine.Pause(); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeRedemptionPaused, map[string]string{
			types.AttributeAddress: admin.Hex(),
		}), nil

	case codec.TypeUnpause:
		if err := engine.Unpause(); err != nil {
			return nil, err
		}
		return okEvent(types.EventTypeRedemptionUnpaused, map[string]string{
			types.AttributeAddress: admin.Hex(),
		}), nil

	default: // codec.TypeMintTickets
		msg, err := codec.DecodeValue[codec.MintTicketsTx](env)
		if err != nil {
			return nil, err
		}
		to, err := codec.ParseAddress("to", msg.To)
		if err != nil {
			return nil, err
		}
		params, err := ledger.LoadParams(txn)
		if err != nil {
			return nil, err
		}
		if err := ledger.NewTickets(txn, params.BurnSink).Mint(to, msg.TicketType, msg.Amount); err != nil {
			return nil, err
		}
		logger.Info("tickets minted", "to", to.Hex(), "ticket_type", msg.TicketType.String(), "amount", msg.Amount)
		return okEvent(types.EventTypeTicketsMinted, map[string]string{
			types.AttributeAddress:    to.Hex(),
			types.AttributeTicketType: msg.TicketType.String(),
			types.AttributeAmount:     strconv.FormatUint(msg.Amount, 10),
		}), nil
	}
}
