// Package main is the entry point for stakeconc, a batch tool that queries
// the StakingRewards API and reports staking-provider concentration metrics
// for proof-of-stake networks.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/yourorg/stake-concentration/internal/cache"
	"github.com/yourorg/stake-concentration/internal/config"
	"github.com/yourorg/stake-concentration/internal/fetch"
	"github.com/yourorg/stake-concentration/internal/model"
	"github.com/yourorg/stake-concentration/internal/otel"
	"github.com/yourorg/stake-concentration/internal/query"
	"github.com/yourorg/stake-concentration/internal/stakingrewards"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()
	setupLogging()

	cfg := config.Load()
	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	app := &cli.App{
		Name:  "stakeconc",
		Usage: "staking-provider concentration metrics from the StakingRewards API",
		Commands: []*cli.Command{
			reportCommand(cfg),
			providersCommand(cfg),
			assetsCommand(cfg),
			billingCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// newClient builds the API client from configuration.
func newClient(cfg config.Config, useCache bool) (*stakingrewards.Client, error) {
	opts := []fetch.Option{
		fetch.WithEndpoint(cfg.APIEndpoint),
		fetch.WithBillingURL(cfg.BillingURL),
		fetch.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, fetch.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	if useCache && cfg.CacheEnabled && cfg.CacheDir != "" {
		fileCache, err := cache.New(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("initializing response cache: %w", err)
		}
		opts = append(opts, fetch.WithCache(fileCache))
	}
	return stakingrewards.New(cfg.APIKey, opts...)
}

func reportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "fetch provider stakes for an asset and print the concentration report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "asset", Usage: "asset slug, e.g. solana", Required: true},
			&cli.IntFlag{Name: "limit", Usage: "maximum reward options to fetch", Value: 200},
			&cli.BoolFlag{Name: "include-inactive", Usage: "keep providers whose activity flag is false"},
			&cli.BoolFlag{Name: "no-reward-rate", Usage: "skip fetching provider reward rates"},
			&cli.BoolFlag{Name: "untracked-hhi", Usage: "count untracked stake as one competitor in HHI"},
			&cli.BoolFlag{Name: "no-cache", Usage: "bypass the response cache"},
		},
		Action: func(c *cli.Context) error {
			client, err := newClient(cfg, !c.Bool("no-cache"))
			if err != nil {
				return err
			}

			opts := stakingrewards.ShareOptions{
				Limit:                 c.Int("limit"),
				IncludeRewardRate:     !c.Bool("no-reward-rate"),
				IncludeUntrackedInHHI: c.Bool("untracked-hhi"),
			}
			if !c.Bool("include-inactive") {
				opts.IsActive = model.Bool(true)
			}

			report, err := client.ProviderStakeShares(c.Context, c.String("asset"), opts)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func providersCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "list tracked providers for an asset with their staked tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "asset", Usage: "asset slug, e.g. solana", Required: true},
			&cli.IntFlag{Name: "limit", Usage: "maximum reward options to fetch", Value: 100},
			&cli.BoolFlag{Name: "include-inactive", Usage: "keep providers whose activity flag is false"},
			&cli.BoolFlag{Name: "no-cache", Usage: "bypass the response cache"},
		},
		Action: func(c *cli.Context) error {
			client, err := newClient(cfg, !c.Bool("no-cache"))
			if err != nil {
				return err
			}
			var isActive *bool
			if !c.Bool("include-inactive") {
				isActive = model.Bool(true)
			}
			records, err := client.ProviderStakedTokens(c.Context, c.String("asset"), c.Int("limit"), isActive)
			if err != nil {
				return err
			}
			return printJSON(records)
		},
	}
}

func assetsCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "assets",
		Usage: "list assets, optionally filtered by symbol",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "symbol", Usage: "asset symbol filter, repeatable"},
			&cli.IntFlag{Name: "limit", Usage: "maximum assets to return", Value: 25},
			&cli.BoolFlag{Name: "no-cache", Usage: "bypass the response cache"},
		},
		Action: func(c *cli.Context) error {
			client, err := newClient(cfg, !c.Bool("no-cache"))
			if err != nil {
				return err
			}
			assets, err := client.Assets(c.Context, query.AssetsOptions{
				Symbols: c.StringSlice("symbol"),
				Limit:   c.Int("limit"),
			})
			if err != nil {
				return err
			}
			return printJSON(assets)
		},
	}
}

func billingCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "billing",
		Usage: "show remaining API credits and plan information",
		Action: func(c *cli.Context) error {
			client, err := newClient(cfg, false)
			if err != nil {
				return err
			}
			status, err := client.BillingStatus(c.Context)
			if err != nil {
				return err
			}
			var pretty any
			if err := json.Unmarshal(status, &pretty); err != nil {
				// Not JSON after all; print as-is
				fmt.Println(string(status))
				return nil
			}
			return printJSON(pretty)
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
