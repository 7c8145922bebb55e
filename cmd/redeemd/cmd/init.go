package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ticketredemption/internal/config"
)

const defaultConfigYAML = `# redeemd configuration. Every key can be overridden with REDEEMD_<KEY>
# (dots become underscores) or a command-line flag.
abci:
  addr: tcp://127.0.0.1:26658
  transport: socket
log_level: info
log_format: plain

# Addresses bound into signatures and admin authentication.
contract: "%s"
burn_sink: "0x000000000000000000000000000000000000dEaD"
admin: "%s"
ticket_verifier: ""
randomness_signer: ""

rarity_file: config/rarity.yaml
audit_db: data/audit.db
max_quantity: 10
db_backend: goleveldb
`

func initCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and rarity file under home",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := e.cfg.Home
			contract, _ := cmd.Flags().GetString(config.KeyContract)
			admin, _ := cmd.Flags().GetString(config.KeyAdmin)
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			rarityYAML, err := defaultRarityYAML()
			if err != nil {
				return err
			}
			files := []struct {
				path string
				body []byte
			}{
				{config.File(home), fmt.Appendf(nil, defaultConfigYAML, contract, admin)},
				{filepath.Join(home, "config", "rarity.yaml"), rarityYAML},
			}
			for _, f := range files {
				if err := writeIfAbsent(f.path, f.body, overwrite); err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), "wrote", f.path); err != nil {
					return err
				}
			}
			return os.MkdirAll(filepath.Join(home, "data"), 0o755)
		},
	}
	cmd.Flags().String(config.KeyContract, "", "contract address")
	cmd.Flags().String(config.KeyAdmin, "", "admin address")
	cmd.Flags().Bool("overwrite", false, "replace existing files")
	return cmd
}

func writeIfAbsent(path string, body []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
