package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"ticketredemption/internal/types"
)

// Draw is one allocated card of a redemption.
type Draw struct {
	Position int           `json:"position"`
	Rarity   types.Rarity  `json:"rarity"`
	Pool     types.Pool    `json:"pool"`
	AssetID  types.AssetID `json:"assetId"`
}

// Record describes one completed redemption.
type Record struct {
	Sender     common.Address   `json:"sender"`
	TicketType types.TicketType `json:"ticketType"`
	Quantity   uint64           `json:"quantity"`
	NonceUsed  uint64           `json:"nonceUsed"`
	Height     int64            `json:"height,omitempty"`
	Draws      []Draw           `json:"draws"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Sink receives a record after the redemption committed.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }

// LogSink writes each record to a logger.
type LogSink struct {
	logger log.Logger
}

func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "audit")}
}

func (s *LogSink) Record(_ context.Context, rec Record) error {
	draws := make([]string, 0, len(rec.Draws))
	for _, d := range rec.Draws {
		draws = append(draws, fmt.Sprintf("%d:%s/%s", d.Position, d.Rarity, d.Pool))
	}
	s.logger.Info("ticket redeemed",
		"sender", rec.Sender.Hex(),
		"ticket_type", rec.TicketType.String(),
		"quantity", rec.Quantity,
		"nonce_used", rec.NonceUsed,
		"draws", strings.Join(draws, ","),
	)
	return nil
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
