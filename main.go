package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/broker"
	datafeed "github.com/fazecat/signalmaker/Internal/database"
	"github.com/fazecat/signalmaker/Internal/model"
	"github.com/fazecat/signalmaker/Internal/pipeline"
	"github.com/fazecat/signalmaker/Internal/sentiment"
	"github.com/fazecat/signalmaker/Internal/strategy"
	"github.com/fazecat/signalmaker/Internal/strategy/confirmation"
	"github.com/fazecat/signalmaker/Internal/strategy/signals"
	"github.com/fazecat/signalmaker/Internal/utils/config"
	"github.com/fazecat/signalmaker/Internal/utils/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml (optional)")
		symbolList = flag.String("symbols", "", "comma-separated symbols; defaults to the stored watchlist")
		reconcile  = flag.Bool("reconcile", false, "poll the broker for order status updates instead of running the signal pass")
		dryRun     = flag.Bool("dry-run", false, "size orders but never send them")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(cfg.Run.LogLevel)

	store, err := datafeed.Open(datafeed.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer store.Close()

	ctx := context.Background()

	gateway, err := buildBroker(ctx, cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("broker setup failed")
	}

	engine := signals.NewFusionEngine(model.NewHeuristic(), buildSentiment(cfg, log), log)
	tracker := confirmation.NewTracker(store, cfg.Risk.ConfirmationCandles, log)

	p := pipeline.New(store, store, engine, tracker, gateway, pipeline.Options{
		Sizer: strategy.SizerConfig{
			CapitalPerTrade:  cfg.Risk.CapitalPerTrade,
			StopLossPercent:  cfg.Risk.StopLossPercent,
			TargetPercent:    cfg.Risk.TargetPercent,
			LimitPriceOffset: cfg.Risk.LimitPriceOffset,
			OrderKind:        cfg.OrderKind(),
			TimeInForce:      cfg.Risk.TimeInForce,
			TrailingJump:     cfg.Broker.TrailingJump,
		},
		MaxPositions:     cfg.Risk.MaxPositions,
		EnableAutoOrders: cfg.Risk.EnableAutoOrders,
		DryRun:           *dryRun,
		RateLimitDelay:   time.Duration(cfg.Run.RateLimitDelayMS) * time.Millisecond,
	}, log)

	if *reconcile {
		applied, err := p.Reconcile(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("reconciliation failed")
		}
		fmt.Printf("applied %d order status updates\n", applied)
		return
	}

	symbols, err := resolveSymbols(ctx, *symbolList, store)
	if err != nil {
		log.Fatal().Err(err).Msg("could not resolve symbols")
	}
	if len(symbols) == 0 {
		log.Warn().Msg("no symbols to process; pass -symbols or populate the watchlist")
		return
	}

	summary, err := p.Run(ctx, symbols)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline run failed")
	}
	fmt.Println(summary.String())
}

// resolveSymbols prefers the -symbols flag; the stored watchlist is the
// fallback.
func resolveSymbols(ctx context.Context, flagValue string, store *datafeed.Store) ([]string, error) {
	if flagValue != "" {
		var symbols []string
		for _, s := range strings.Split(flagValue, ",") {
			if s = strings.TrimSpace(strings.ToUpper(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		return symbols, nil
	}
	return store.GetWatchlist(ctx)
}

func buildBroker(ctx context.Context, cfg *config.Config, store *datafeed.Store, log zerolog.Logger) (broker.Broker, error) {
	if cfg.Broker.Name != broker.DhanName {
		return broker.NewDemo(log), nil
	}

	listings, err := store.ListSecurities(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading security listings: %w", err)
	}
	if len(listings) == 0 {
		return nil, errors.New("security listings table is empty; seed it before using the dhan broker")
	}

	transports := []broker.Transport{
		broker.NewHTTPTransport("primary", cfg.Broker.APIURL, broker.DefaultTimeout),
	}
	if cfg.Broker.FallbackURL != "" {
		transports = append(transports,
			broker.NewHTTPTransport("fallback", cfg.Broker.FallbackURL, broker.DefaultTimeout))
	}

	return broker.NewDhan(broker.DhanConfig{
		ClientID:     cfg.Broker.ClientID,
		AccessToken:  cfg.Broker.AccessToken,
		Segment:      cfg.Broker.ExchangeSegment,
		ProductType:  cfg.Broker.ProductType,
		TrailingJump: cfg.Broker.TrailingJump,
	}, transports, listings, log), nil
}

// buildSentiment wires the mock source behind redis when an address is
// configured, an in-process cache otherwise.
func buildSentiment(cfg *config.Config, log zerolog.Logger) *sentiment.Analyzer {
	var cache sentiment.Cache
	if cfg.Redis.Addr != "" {
		cache = sentiment.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
	} else {
		cache = sentiment.NewMemoryCache()
	}
	return sentiment.NewAnalyzer(sentiment.NewMockSource(), cache, log)
}
