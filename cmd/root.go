// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Swatinem/fondoeh/accumulating"
	"github.com/Swatinem/fondoeh/cache"
	"github.com/Swatinem/fondoeh/fusion"
	"github.com/Swatinem/fondoeh/fx"
	"github.com/Swatinem/fondoeh/journal"
	"github.com/Swatinem/fondoeh/ledger"
	"github.com/Swatinem/fondoeh/notify"
	"github.com/Swatinem/fondoeh/quotes"
	"github.com/Swatinem/fondoeh/report"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fondoeh <data-paths...>",
	Short: "fondoeh computes Austrian capital-gains tax positions from a transaction journal",
	Long: `fondoeh reads a portfolio of securities described as human-edited YAML
journals (one file per security) and computes, for each, a per-year ledger of
the moving-average inventory and the Austrian statutory tax-form line items,
fusing the journal against the official reporting-agent notifications for
funds and enriching accumulating funds with an estimated synthetic
distribution.

Every path is scanned recursively for *.yml/*.yaml files; duplicates (the
same file reached via two paths) are processed once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoot,
}

var (
	tsv  bool
	jahr int
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fondoeh.toml)")
	rootCmd.Flags().BoolVar(&tsv, "tsv", false, "emit a tab-separated detail export instead of the human report")
	rootCmd.Flags().IntVar(&jahr, "jahr", 0, "restrict output to one calendar year and print its statutory summary")

	if err := viper.BindPFlag("tsv", rootCmd.Flags().Lookup("tsv")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for tsv failed")
	}
	if err := viper.BindPFlag("jahr", rootCmd.Flags().Lookup("jahr")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for jahr failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".fondoeh")
	}

	viper.SetEnvPrefix("FONDOEH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	runID := uuid.New()
	logger := log.With().Str("run", runID.String()).Logger()
	ctx := logger.WithContext(context.Background())

	today := time.Now()

	securities, err := journal.Load(args)
	if err != nil {
		return fmt.Errorf("loading journal: %w", err)
	}

	cacheDir, err := cache.Open(".cache")
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	bridge := fx.New(cacheDir, today)
	quoteSource := quotes.New(cacheDir, bridge)
	notifySource := notify.New(bridge, cacheDir, today)

	engine := &fusion.Engine{Notifications: notifySource, Quotes: quoteSource, Today: today}
	accPass := &accumulating.Pass{Quotes: quoteSource, Today: today}

	// A failing security is dropped from the render set but does not
	// abort the run: its siblings still publish, and the aggregated
	// error surfaces only after rendering, so the exit code still
	// reflects the failure.
	failed, evalErr := evaluateAll(ctx, engine, accPass, quoteSource, securities)
	published := make([]*ledger.Security, 0, len(securities))
	for _, sec := range securities {
		if !failed[sec.ISIN] {
			published = append(published, sec)
		}
	}

	var year *int
	if viper.GetInt("jahr") != 0 {
		y := viper.GetInt("jahr")
		year = &y
	}

	var renderErr error
	if viper.GetBool("tsv") {
		renderErr = report.WriteTSV(os.Stdout, published, year)
	} else {
		renderErr = report.WriteHuman(os.Stdout, published, year, today)
	}
	if renderErr != nil {
		return renderErr
	}
	return evalErr
}

// evaluateAll fuses and, for accumulating funds, enriches every security in
// parallel, isolating one security's failure from the rest: a failing
// security is reported but does not prevent the others from publishing. It
// returns the set of ISINs that failed, so the caller can exclude them from
// rendering, alongside the combined error.
func evaluateAll(ctx context.Context, engine *fusion.Engine, accPass *accumulating.Pass, quoteSource *quotes.Source, securities []*ledger.Security) (map[string]bool, error) {
	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))

	var mu sync.Mutex
	var errs error
	failed := make(map[string]bool)

	for _, sec := range securities {
		sec := sec
		p.Go(func() {
			if err := evaluateOne(ctx, engine, accPass, quoteSource, sec); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s (%s): %w", sec.Name, sec.ISIN, err))
				failed[sec.ISIN] = true
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return failed, errs
}

func evaluateOne(ctx context.Context, engine *fusion.Engine, accPass *accumulating.Pass, quoteSource *quotes.Source, sec *ledger.Security) error {
	if err := engine.EvaluateSecurity(ctx, sec); err != nil {
		return err
	}

	if sec.Type != ledger.AccumulatingFund {
		return nil
	}

	if sec.Symbol == "" {
		symbol, name, found, err := quoteSource.SearchSecurity(ctx, sec.ISIN)
		if err != nil {
			return fmt.Errorf("resolving symbol: %w", err)
		}
		if found {
			sec.Symbol = symbol
			if name != "" {
				sec.Name = name
			}
		}
	}

	return accPass.Apply(ctx, sec)
}
