package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inferloop/kanon/cmd/cli/config"
	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/lookup"
	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/report"
	"github.com/inferloop/kanon/pkg/errors"
)

// runtime holds what every command needs once configuration is resolved.
type runtime struct {
	config *config.CLIConfig
	logger *logrus.Logger
	store  *dataset.Store
}

// persistentBindings maps root flags to configuration keys.
var persistentBindings = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"log-file":   "logging.file",
}

// newRuntime binds the command's flags to configuration keys, loads the
// configuration and builds the logger and dataset store.
func newRuntime(cmd *cobra.Command, bindings map[string]string) (*runtime, error) {
	v := viper.New()
	for flag, key := range persistentBindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(v, cfgFile)
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && cfg.Logging.File == "" {
		logger.SetLevel(logrus.DebugLevel)
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.WithField("config", used).Debug("Using config file")
	}

	var s3 *dataset.S3Store
	if cfg.S3Enabled() {
		s3, err = dataset.NewS3Store(&cfg.S3, logger)
		if err != nil {
			return nil, err
		}
	}

	return &runtime{
		config: cfg,
		logger: logger,
		store:  dataset.NewStore(cfg.CSV, s3, logger),
	}, nil
}

// lookupProvider selects the lookup table source.
func (rt *runtime) lookupProvider() (lookup.Provider, error) {
	lc := rt.config.Lookup
	if lc.Source == config.LookupSourceRedis {
		return lookup.NewRedisProvider(&lc.Redis, rt.logger)
	}
	if lc.SettingsPath == "" {
		return nil, errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing,
			"no settings file configured")
	}
	p := lookup.NewFileProvider(lc.SettingsPath, lc.BINListPath, rt.logger)
	if lc.BINDelimiter != "" {
		p.BINDelimiter = lc.BINDelimiter
	}
	return p, nil
}

// quasiIdentifiers resolves configured selectors against the dataset. With
// no selectors the column list is printed and the user is asked to pick.
func quasiIdentifiers(cmd *cobra.Command, columns []string, selectors []string) ([]string, error) {
	if len(selectors) > 0 {
		return privacy.ResolveQuasiIdentifiers(columns, selectors)
	}
	return promptQuasiIdentifiers(cmd.InOrStdin(), cmd.OutOrStdout(), columns)
}

// promptQuasiIdentifiers asks for comma separated column numbers until a
// valid selection is entered or input ends.
func promptQuasiIdentifiers(in io.Reader, out io.Writer, columns []string) ([]string, error) {
	report.WriteColumns(out, columns)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter the numbers of the quasi-identifier columns, separated by commas: ")
		if !scanner.Scan() {
			break
		}
		selected, err := privacy.ResolveQuasiIdentifiers(columns, strings.Split(scanner.Text(), ","))
		if err != nil {
			fmt.Fprintf(out, "Error: %v. Please try again.\n", err)
			continue
		}
		if len(selected) == 0 {
			fmt.Fprintln(out, "Select at least one column.")
			continue
		}
		return selected, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.NewPreconditionError(errors.CodeEmptyQuasiIdent, errors.ErrEmptyQuasiIdentifiers).
		WithDetails("no quasi-identifier columns selected")
}
