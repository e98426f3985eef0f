package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/application/service"
	"xgains/internal/application/usecase/recorder"
	"xgains/internal/infrastructure/config"
	infracontainer "xgains/internal/infrastructure/container"
	"xgains/internal/infrastructure/logger"
	"xgains/internal/interfaces/console"
	"xgains/internal/interfaces/httpapi"
)

var commands = []subcommands.Command{
	&serveCmd{},
	&importCmd{},
	&syncPairsCmd{},
	&syncTradesCmd{},
	&priceCmd{},
	&gainsCmd{},
	&recordCmd{},
}

// open 读取配置并构建依赖，调用方负责 Close
func open() (*infracontainer.Container, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", *configPath, err)
	}
	logger.Setup(cfg.App.LogLevel)
	return infracontainer.New(cfg)
}

// run 打开容器，执行 fn，统一处理错误与退出码
func run(fn func(c *infracontainer.Container) error) subcommands.ExitStatus {
	c, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer c.Close()

	if err := fn(c); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("command failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// ===== serve =====

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger read API over HTTP" }
func (*serveCmd) Usage() string {
	return `xgains serve [-addr <host:port>]

  Serves GET /db/{endpoint}/{table} and GET /price/{asset}.
`
}

func (p *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "listen address (defaults to server.addr)")
}

func (p *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(c *infracontainer.Container) error {
		cfg := c.Config()
		addr := p.addr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := httpapi.NewServer(c.App().LedgerService(), c.App().PriceService(), httpapi.Options{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		})
		return httpapi.ListenAndServe(ctx, addr, srv.Router())
	})
}

// ===== import =====

type importCmd struct {
	format string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a Binance buy/sell history CSV into the ledger" }
func (*importCmd) Usage() string {
	return `xgains import -format buy|sell <file.csv>...

  Each file is imported as its own batch, named after the file. Importing
  the same file twice adds nothing.
`
}

func (p *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.format, "format", "", "export format (buy, sell)")
}

func (p *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 || p.format == "" {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	return run(func(c *infracontainer.Container) error {
		sink := console.NewSink()
		for _, file := range f.Args() {
			report, err := importFile(ctx, c.App().ImportService(), p.format, file)
			if err != nil {
				return err
			}
			if err := sink.WriteJSON(report); err != nil {
				return err
			}
		}
		return nil
	})
}

func importFile(ctx context.Context, svc *service.ImportService, format, file string) (service.ImportReport, error) {
	fh, err := os.Open(file)
	if err != nil {
		return service.ImportReport{}, err
	}
	defer fh.Close()
	return svc.Import(ctx, format, batchName(file), fh)
}

// batchName 批次名即文件名（含扩展名）
func batchName(file string) string {
	return filepath.Base(file)
}

// ===== sync-pairs =====

type syncPairsCmd struct{}

func (*syncPairsCmd) Name() string     { return "sync-pairs" }
func (*syncPairsCmd) Synopsis() string { return "store the exchange's trading pairs" }
func (*syncPairsCmd) Usage() string {
	return `xgains sync-pairs

  Fetches every spot symbol from exchangeInfo into the pair table.
`
}
func (*syncPairsCmd) SetFlags(*flag.FlagSet) {}

func (*syncPairsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(c *infracontainer.Container) error {
		n, err := c.App().PairService().SyncPairs(ctx)
		if err != nil {
			return err
		}
		return console.NewSink().WriteLine(fmt.Sprintf("%d pairs", n))
	})
}

// ===== sync-trades =====

type syncTradesCmd struct {
	symbols string
}

func (*syncTradesCmd) Name() string     { return "sync-trades" }
func (*syncTradesCmd) Synopsis() string { return "mirror exchange orders and convert them to transactions" }
func (*syncTradesCmd) Usage() string {
	return `xgains sync-trades [-symbols BTCEUR,ETHBTC]

  Requires BINANCE_API_KEY and BINANCE_API_SECRET. Symbols default to
  sync.symbols from the config.
`
}

func (p *syncTradesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.symbols, "symbols", "", "comma separated symbols (defaults to sync.symbols)")
}

func (p *syncTradesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(c *infracontainer.Container) error {
		symbols := c.Config().Sync.Symbols
		if p.symbols != "" {
			symbols = splitSymbols(p.symbols)
		}
		report, err := c.App().TradeService().SyncTrades(ctx, symbols)
		if err != nil {
			return err
		}
		return console.NewSink().WriteJSON(report)
	})
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if u := strings.ToUpper(strings.TrimSpace(part)); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ===== price =====

type priceCmd struct {
	asset string
	at    string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "print the fiat price of an asset at a moment" }
func (*priceCmd) Usage() string {
	return `xgains price -asset <ASSET> [-at <RFC3339|unix ms>]
`
}

func (p *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.asset, "asset", "", "asset to price, e.g. ETH")
	f.StringVar(&p.at, "at", "", "moment to price at (defaults to now)")
}

func (p *priceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.asset == "" {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	at, err := parseMoment(p.at, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return run(func(c *infracontainer.Container) error {
		prices := c.App().PriceService()
		price, found, err := prices.PriceAt(ctx, strings.ToUpper(p.asset), at)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no price found for %s at %s", p.asset, at.Format(time.RFC3339))
		}
		return console.NewSink().WriteLine(fmt.Sprintf("%s %s %v %s", at.UTC().Format(time.RFC3339), strings.ToUpper(p.asset), price, prices.Fiat()))
	})
}

// parseMoment RFC3339 或 unix 毫秒；空串返回 now
func parseMoment(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: want RFC3339 or unix ms", s)
	}
	return t, nil
}

// ===== gains =====

type gainsCmd struct {
	endpoint string
	offset   int
	limit    int
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "print transactions with their FIFO gains and cost bases" }
func (*gainsCmd) Usage() string {
	return `xgains gains [-endpoint <name>] [-offset N] [-limit N]

  Same result as GET /db/{endpoint}/transaction.
`
}

func (p *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.endpoint, "endpoint", "", "ledger endpoint (defaults to app.ledger)")
	f.IntVar(&p.offset, "offset", 0, "rows to skip")
	f.IntVar(&p.limit, "limit", 0, "rows to return (0 = server.max_rows)")
}

func (p *gainsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(c *infracontainer.Container) error {
		endpoint := p.endpoint
		if endpoint == "" {
			endpoint = c.Config().App.Ledger
		}
		view, err := c.App().LedgerService().Query(ctx, endpoint, service.TransactionTable, port.RowQuery{
			Offset: p.offset,
			Limit:  p.limit,
		})
		if err != nil {
			return err
		}
		return console.NewSink().WriteJSON(view)
	})
}

// ===== record =====

type recordCmd struct{}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "record live one-minute candles into the candle caches" }
func (*recordCmd) Usage() string {
	return `xgains record

  Subscribes to recorder.symbols and stores every closed candle.
`
}
func (*recordCmd) SetFlags(*flag.FlagSet) {}

func (*recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(c *infracontainer.Container) error {
		cfg := c.Config()
		svc := recorder.NewService(recorder.ServiceDeps{
			Feeds:         c.KlineFeeds(),
			Symbols:       cfg.Recorder.Symbols,
			PrintEveryMin: cfg.Recorder.PrintEveryMin,
			Cache:         c.CandleCache(),
			Sink:          console.NewSink(),
			Color:         true,
		})

		log.Info().
			Str("config", *configPath).
			Int("symbols", len(cfg.Recorder.Symbols)).
			Int("print_every_min", cfg.Recorder.PrintEveryMin).
			Msg("xgains recorder started")

		return svc.Run(ctx)
	})
}
