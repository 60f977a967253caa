package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"quoteflow/config"
	"quoteflow/internal/engine"
	"quoteflow/internal/model"
	"quoteflow/internal/source"
	"quoteflow/internal/source/amfi"
	"quoteflow/internal/source/binance"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

const usage = `Usage: quoteflow [flags] <command> [args]

Commands:
  tickers [SYMBOL...]     sync and print the instrument catalog
  quotes [SYMBOL...]      sync and print quotes; SYMBOL may be SYMBOL@SOURCE
  sources                 print the registered sources

Flags:
`

// listFlag collects a repeatable comma separated flag value.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*f = append(*f, part)
		}
	}
	return nil
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	format := flag.String("format", "csv", "Output format: csv or json")
	startStr := flag.String("start", "", "Start date (YYYY-MM-DD) for quote queries")
	endStr := flag.String("end", "", "End date (YYYY-MM-DD) for quote queries")
	var sourceKeys listFlag
	flag.Var(&sourceKeys, "source", "Restrict to the given source keys (repeatable)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel, log)

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace)
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Quoteflow.Name,
		"version": cfg.Quoteflow.Version,
	}).Info("starting quoteflow")

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Failed to initialise engine")
		os.Exit(1)
	}

	if err := runCommand(ctx, eng, flag.Args(), commandOptions{
		format:     engine.Format(*format),
		startStr:   *startStr,
		endStr:     *endStr,
		sourceKeys: sourceKeys,
	}); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	var sources []source.Source
	if cfg.Source.AMFI.Enabled {
		sources = append(sources, amfi.New(amfi.Options{
			LatestURL:         cfg.Source.AMFI.LatestURL,
			HistoryURL:        cfg.Source.AMFI.HistoryURL,
			Timeout:           cfg.Source.AMFI.Timeout,
			RequestsPerSecond: cfg.Source.AMFI.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.Source.AMFI.RateLimit.BurstSize,
		}))
	}
	if cfg.Source.Binance.Enabled {
		sources = append(sources, binance.New(binance.Options{
			Symbols: cfg.Source.Binance.Symbols,
			Timeout: cfg.Source.Binance.Timeout,
		}))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources enabled in configuration")
	}

	registry, err := source.NewRegistry(sources...)
	if err != nil {
		return nil, fmt.Errorf("build source registry: %w", err)
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(registry, st), nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return store.NewS3(ctx, store.S3Options{
			Bucket:          cfg.Storage.S3.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			PathStyle:       cfg.Storage.S3.PathStyle,
			Prefix:          cfg.Storage.S3.Prefix,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		})
	default:
		return store.NewLocal(cfg.Storage.Local.Dir)
	}
}

type commandOptions struct {
	format     engine.Format
	startStr   string
	endStr     string
	sourceKeys []string
}

func runCommand(ctx context.Context, eng *engine.Engine, args []string, opts commandOptions) error {
	command, args := args[0], args[1:]

	switch command {
	case "tickers":
		var filters engine.TickerFilters
		if len(args) > 0 {
			filters = engine.TickerFilters{"symbol": args}
		}
		table, err := eng.GetTickers(ctx, filters, opts.sourceKeys)
		if err != nil {
			return err
		}
		return printTable(table, opts.format)

	case "quotes":
		specs, err := parseTickerSpecs(args, opts.sourceKeys)
		if err != nil {
			return err
		}
		start, err := parseDateFlag(opts.startStr)
		if err != nil {
			return err
		}
		end, err := parseDateFlag(opts.endStr)
		if err != nil {
			return err
		}
		table, err := eng.GetQuotes(ctx, specs, start, end)
		if err != nil {
			return err
		}
		return printTable(table, opts.format)

	case "sources":
		for _, info := range eng.GetSources(opts.sourceKeys) {
			fmt.Printf("%s\t%s\tv%d\t%s\n", info.Key, info.Name, info.Version, info.Description)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// parseTickerSpecs turns SYMBOL or SYMBOL@SOURCE arguments into ticker
// specs. A -source restriction applies to the bare symbols.
func parseTickerSpecs(args, sourceKeys []string) ([]engine.TickerSpec, error) {
	var specs []engine.TickerSpec
	for _, arg := range args {
		symbol, key, found := strings.Cut(arg, "@")
		if found {
			if symbol == "" || key == "" {
				return nil, fmt.Errorf("invalid ticker %q, expected SYMBOL@SOURCE", arg)
			}
			specs = append(specs, engine.TickerSpec{Symbol: symbol, SourceKey: key})
			continue
		}
		if len(sourceKeys) > 0 {
			for _, key := range sourceKeys {
				specs = append(specs, engine.TickerSpec{Symbol: symbol, SourceKey: key})
			}
			continue
		}
		specs = append(specs, engine.TickerSpec{Symbol: symbol})
	}
	return specs, nil
}

func parseDateFlag(s string) (*model.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type outputTable interface {
	Output(engine.Format) (any, error)
}

func printTable(table outputTable, format engine.Format) error {
	out, err := table.Output(format)
	if err != nil {
		return err
	}
	switch v := out.(type) {
	case string:
		fmt.Print(v)
		if !strings.HasSuffix(v, "\n") {
			fmt.Println()
		}
	default:
		fmt.Printf("%v\n", v)
	}
	return nil
}

func handleShutdown(cancel context.CancelFunc, log *logger.Log) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	cancel()
}
