package redemption

import (
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/ledger"
	"ticketredemption/internal/pool"
	"ticketredemption/internal/rarity"
	"ticketredemption/internal/types"
)

// Params returns the committed configuration.
func (e *Engine) Params() (ledger.Params, error) {
	st, err := e.backend.Begin()
	if err != nil {
		return ledger.Params{}, err
	}
	defer st.Discard()
	return st.Params()
}

// updateParams applies fn to the stored params and commits the result. Admin
// updates are serialized against each other; an in-flight redemption keeps
// the params it started with.
func (e *Engine) updateParams(fn func(p *ledger.Params) error) (ledger.Params, error) {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	st, err := e.backend.Begin()
	if err != nil {
		return ledger.Params{}, err
	}
	defer st.Discard()

	p, err := st.Params()
	if err != nil {
		return ledger.Params{}, err
	}
	if err := fn(&p); err != nil {
		return ledger.Params{}, err
	}
	if err := st.SetParams(p); err != nil {
		return ledger.Params{}, err
	}
	if err := st.Commit(); err != nil {
		return ledger.Params{}, err
	}
	return p, nil
}

func (e *Engine) SetTicketVerifier(addr common.Address) error {
	if addr == (common.Address{}) {
		return types.ErrInvalidRequest.Wrap("ticket verifier must not be the zero address")
	}
	_, err := e.updateParams(func(p *ledger.Params) error {
		p.TicketVerifier = addr
		return nil
	})
	if err == nil {
		e.logger.Info("ticket verifier updated", "address", addr.Hex())
	}
	return err
}

func (e *Engine) SetRandomnessSigner(addr common.Address) error {
	if addr == (common.Address{}) {
		return types.ErrInvalidRequest.Wrap("randomness signer must not be the zero address")
	}
	_, err := e.updateParams(func(p *ledger.Params) error {
		p.RandomnessSigner = addr
		return nil
	})
	if err == nil {
		e.logger.Info("randomness signer updated", "address", addr.Hex())
	}
	return err
}

// SetRarityTable replaces every position of tier.
func (e *Engine) SetRarityTable(tier types.TicketType, tt rarity.TierTable) error {
	_, err := e.updateParams(func(p *ledger.Params) error {
		t := p.RarityTable.Clone()
		if err := t.SetTier(tier, tt); err != nil {
			return err
		}
		p.RarityTable = t
		return nil
	})
	if err == nil {
		e.logger.Info("rarity table updated", "ticket_type", tier.String())
	}
	return err
}

func (e *Engine) SetPoolWeights(cfg pool.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := e.updateParams(func(p *ledger.Params) error {
		p.PoolWeights = cfg
		return nil
	})
	if err == nil {
		e.logger.Info("pool weights updated", "default", cfg.Default.String())
	}
	return err
}

func (e *Engine) Pause() error   { return e.setPaused(true) }
func (e *Engine) Unpause() error { return e.setPaused(false) }

func (e *Engine) setPaused(paused bool) error {
	_, err := e.updateParams(func(p *ledger.Params) error {
		p.Paused = paused
		return nil
	})
	if err == nil {
		e.logger.Info("redemption pause toggled", "paused", paused)
	}
	return err
}
