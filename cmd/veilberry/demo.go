package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/blockberries/veilberry/config"
	"github.com/blockberries/veilberry/execution"
	"github.com/blockberries/veilberry/ledger"
	"github.com/blockberries/veilberry/metrics"
	"github.com/blockberries/veilberry/programs/auction"
	"github.com/blockberries/veilberry/tracing/otel"
	"github.com/blockberries/veilberry/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an auction against the configured stores",
	Long: `Run a complete sealed-bid auction end to end.

Two bidders place bids, the auctioneer resolves them and finishes
the auction, and the winning bid record changes hands. The mapping
state is committed afterwards so a persistent backend keeps it.

Example:
  veilberry demo --config config.toml`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	logger := createLogger(cfg.Logging)
	opts := []ledger.Option{ledger.WithLogger(logger)}

	if cfg.Metrics.Enabled {
		m := metrics.NewPrometheusMetrics("veilberry")
		opts = append(opts, ledger.WithMetrics(m))

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if cfg.Tracing.Enabled {
		pcfg := otel.DefaultProviderConfig()
		pcfg.ServiceVersion = Version
		pcfg.Exporter = cfg.Tracing.Exporter
		pcfg.Endpoint = cfg.Tracing.Endpoint
		pcfg.SampleRate = cfg.Tracing.SampleRatio

		provider, err := otel.NewProvider(pcfg)
		if err != nil {
			return fmt.Errorf("creating tracer provider: %w", err)
		}
		defer func() { _ = otel.Shutdown(context.Background(), provider) }()
		opts = append(opts, ledger.WithTracer(otel.NewTracerWithProvider("veilberry", provider)))
	}

	records, err := openRecordStore(cfg.RecordStore)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	mappings, err := openMappingStore(cfg.MappingStore)
	if err != nil {
		_ = records.Close()
		return fmt.Errorf("opening mapping store: %w", err)
	}

	l := ledger.New(records, mappings, opts...)
	defer l.Close()

	const (
		auctioneer = types.Identity("aleo1demo_auctioneer")
		bidderA    = types.Identity("aleo1demo_bidder_a")
		bidderB    = types.Identity("aleo1demo_bidder_b")
	)

	if err := l.RegisterProgram(auction.New(auctioneer)); err != nil {
		return fmt.Errorf("registering auction program: %w", err)
	}

	ctx := context.Background()
	placeBid := func(bidder types.Identity, amount uint64) (*types.Record, error) {
		result, err := l.Execute(ctx, &execution.Request{
			Program:    auction.ProgramID,
			Transition: auction.TransitionPlaceBid,
			Caller:     bidder,
			Args:       []types.Value{types.Address(bidder), types.U64(amount)},
		})
		if err != nil {
			return nil, err
		}
		fmt.Printf("%s placed a bid of %d -> %s\n", bidder, amount, result.Outputs[0].Ref)
		return result.Outputs[0], nil
	}

	bidA, err := placeBid(bidderA, 100)
	if err != nil {
		return err
	}
	bidB, err := placeBid(bidderB, 150)
	if err != nil {
		return err
	}

	resolved, err := l.Execute(ctx, &execution.Request{
		Program:    auction.ProgramID,
		Transition: auction.TransitionResolve,
		Caller:     auctioneer,
		Inputs:     []types.RecordRef{bidA.Ref, bidB.Ref},
	})
	if err != nil {
		return fmt.Errorf("resolving bids: %w", err)
	}
	surviving := resolved.Outputs[0]
	fmt.Printf("auctioneer resolved the bids -> %s\n", surviving.Ref)

	finished, err := l.Execute(ctx, &execution.Request{
		Program:    auction.ProgramID,
		Transition: auction.TransitionFinish,
		Caller:     auctioneer,
		Inputs:     []types.RecordRef{surviving.Ref},
	})
	if err != nil {
		return fmt.Errorf("finishing auction: %w", err)
	}

	won := finished.Outputs[0]
	amount, _ := won.Field(auction.FieldAmount)
	fmt.Printf("auction finished: %s won with %d\n", won.Owner, amount.Uint)

	hash, version, err := l.Commit()
	if err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	fmt.Printf("state committed: version=%d root=%s\n", version, hex.EncodeToString(hash))

	return nil
}
