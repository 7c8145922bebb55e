package cmd

import (
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ticketredemption/internal/config"
)

// env is shared by every subcommand. cfg is loaded in PersistentPreRunE.
type env struct {
	v   *viper.Viper
	cfg config.Config
}

// NewRootCmd creates the redeemd root command. It is called once in main.
func NewRootCmd() *cobra.Command {
	e := &env{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Ticket redemption ABCI application",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())

			if err := bindFlags(e.v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(e.v)
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String(config.KeyHome, config.DefaultHome(), "node home directory (config under <home>/config, data under <home>/data)")
	pf.String(config.KeyLogLevel, "info", "log level (trace|debug|info|warn|error)")
	pf.String(config.KeyLogFormat, "plain", "log format (plain|json)")

	rootCmd.AddCommand(
		initCmd(e),
		startCmd(e),
		signCmd(),
		keysCmd(),
		tablesCmd(),
		auditCmd(e),
	)
	return rootCmd
}

// bindFlags binds every flag whose name is a config key. Flags the user did
// not set keep lower precedence than the config file and env.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || !isConfigKey(f.Name) {
			return
		}
		err = v.BindPFlag(f.Name, f)
	})
	return err
}

func isConfigKey(name string) bool {
	switch name {
	case config.KeyHome, config.KeyABCIAddr, config.KeyABCITransport,
		config.KeyLogLevel, config.KeyLogFormat, config.KeyContract,
		config.KeyBurnSink, config.KeyAdmin, config.KeyTicketVerifier,
		config.KeyRandomnessSigner, config.KeyRarityFile, config.KeyAuditDB,
		config.KeyMaxQuantity, config.KeyDBBackend:
		return true
	}
	return false
}

func newLogger(w io.Writer, cfg config.Config) (log.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	opts := []log.Option{log.LevelOption(level)}
	if cfg.LogFormat == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(w, opts...), nil
}
