package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"

	"ticketredemption/internal/app"
	"ticketredemption/internal/audit"
	auditsqlite "ticketredemption/internal/audit/sqlite"
	"ticketredemption/internal/config"
	"ticketredemption/internal/ledger"
	"ticketredemption/internal/redemption"
	"ticketredemption/internal/store"
)

func startCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the application over ABCI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := e.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			genesis, err := cfg.Genesis()
			if err != nil {
				return fmt.Errorf("genesis: %w", err)
			}

			db, err := store.Open(cfg.Home, cfg.DBBackend)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			sinks := audit.Multi{audit.NewLogSink(logger)}
			if path := cfg.Path(cfg.AuditDB); path != "" {
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("audit dir: %w", err)
				}
				auditStore, err := auditsqlite.Open(path)
				if err != nil {
					return fmt.Errorf("audit db: %w", err)
				}
				defer func() { _ = auditStore.Close() }()
				sinks = append(sinks, auditStore)
			}

			var source redemption.EntropySource
			oracle, err := cfg.Oracle()
			if err != nil {
				return err
			}
			if oracle != nil {
				logger.Warn("local randomness oracle enabled; development only", "signer", oracle.Address().Hex())
				source = oracle
			}

			a, err := app.New(app.Options{
				Store:   db,
				Genesis: &genesis,
				Source:  source,
				Audit:   sinks,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			srv, err := server.NewServer(cfg.ABCI.Addr, cfg.ABCI.Transport, a)
			if err != nil {
				return fmt.Errorf("create abci server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("abci server start: %w", err)
			}
			defer func() { _ = srv.Stop() }()
			logger.Info("abci server listening", "addr", cfg.ABCI.Addr, "transport", cfg.ABCI.Transport, "home", cfg.Home)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				logger.Info("shutting down", "signal", sig.String())
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String(config.KeyABCIAddr, "tcp://127.0.0.1:26658", "ABCI listen address")
	f.String(config.KeyABCITransport, "socket", "ABCI transport (socket|grpc)")
	f.String(config.KeyDBBackend, "goleveldb", "state database backend (goleveldb|memdb)")
	f.String(config.KeyRarityFile, filepath.Join("config", "rarity.yaml"), "rarity table and pool weight file, relative to home")
	f.String(config.KeyAuditDB, filepath.Join("data", "audit.db"), "SQLite audit log, relative to home; empty disables it")
	f.String(config.KeyContract, "", "contract address bound into every signature")
	f.String(config.KeyAdmin, "", "admin address allowed to sign admin txs")
	f.String(config.KeyTicketVerifier, "", "ticket verifier address")
	f.String(config.KeyRandomnessSigner, "", "randomness signer address")
	f.String(config.KeyBurnSink, ledger.DefaultBurnSink.Hex(), "burn sink address")
	f.Uint64(config.KeyMaxQuantity, ledger.DefaultMaxQuantity, "max tickets per redeem tx")
	return cmd
}
