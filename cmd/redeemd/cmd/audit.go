package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	auditsqlite "ticketredemption/internal/audit/sqlite"
)

func auditCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the local redemption audit log",
	}
	list := &cobra.Command{
		Use:   "list <sender>",
		Short: "List a sender's redemptions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%q is not a hex address", args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")

			path := e.cfg.Path(e.cfg.AuditDB)
			if path == "" {
				return fmt.Errorf("audit_db is not configured")
			}
			st, err := auditsqlite.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			recs, err := st.ListBySender(cmd.Context(), common.HexToAddress(args[0]), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		},
	}
	list.Flags().Int("limit", 20, "max records")
	cmd.AddCommand(list)
	return cmd
}
