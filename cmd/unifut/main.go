package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"unifut/internal/application/futures"
	"unifut/internal/domain/model"
	"unifut/internal/infrastructure/config"
	"unifut/internal/infrastructure/container"
	"unifut/internal/infrastructure/logger"
	"unifut/internal/interfaces/console"
	"unifut/internal/interfaces/httpapi"
)

const (
	NAME    = "unifut"
	VERSION = "v1.0.0"
)

func main() {
	app := cli.NewApp()
	app.Name = NAME
	app.Version = VERSION
	app.Usage = "Bybit unified account USDT perpetual client"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "configs/config.toml", Usage: "path to config.toml"},
		cli.BoolFlag{Name: "pretty", Usage: "indent JSON output"},
	}
	app.Commands = commands()

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("unifut exited")
	}
}

func commands() []cli.Command {
	pairFlag := cli.StringFlag{Name: "pair, p", Value: futures.DefaultPair}
	coinFlag := cli.StringFlag{Name: "coin", Value: futures.DefaultCoin}

	return []cli.Command{
		{
			Name:  "balance",
			Usage: "equity of a coin",
			Flags: []cli.Flag{coinFlag},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.GetBalance(ctx, c.String("coin")))
			}),
		},
		{
			Name:  "pairs",
			Usage: "list perpetual pairs settled in a coin",
			Flags: []cli.Flag{coinFlag},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.GetPairs(ctx, c.String("coin")))
			}),
		},
		{
			Name:  "precisions",
			Usage: "reload instrument metadata",
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.RefreshPrecisions(ctx))
			}),
		},
		{
			Name:  "params",
			Usage: "trading parameters of a pair",
			Flags: []cli.Flag{pairFlag},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.GetPairParameters(ctx, c.String("pair")))
			}),
		},
		{
			Name:  "round",
			Usage: "round a number down to n decimals",
			Flags: []cli.Flag{
				cli.Float64Flag{Name: "number"},
				cli.IntFlag{Name: "decimals"},
			},
			Action: func(c *cli.Context) error {
				return output(c, futures.Wrap(futures.RoundDecimalsDown(c.Float64("number"), c.Int("decimals"))))
			},
		},
		{
			Name:  "leverage",
			Usage: "set leverage of a pair",
			Flags: []cli.Flag{pairFlag, cli.Float64Flag{Name: "leverage, l", Value: 1}},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.SetLeverage(ctx, c.String("pair"), c.Float64("leverage")))
			}),
		},
		{
			Name:  "margin",
			Usage: "switch margin type (CROSSED / ISOLATED)",
			Flags: []cli.Flag{
				pairFlag,
				cli.StringFlag{Name: "type, t", Value: string(model.MarginIsolated)},
				cli.Float64Flag{Name: "leverage, l", Usage: "0 keeps the position leverage"},
			},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.SetMarginType(ctx, c.String("pair"), model.MarginMode(c.String("type")), c.Float64("leverage")))
			}),
		},
		{
			Name:  "order",
			Usage: "place an order (one-way mode)",
			Flags: []cli.Flag{
				pairFlag,
				cli.StringFlag{Name: "side, s", Value: model.SideBuy},
				cli.Float64Flag{Name: "qty, q"},
				cli.StringFlag{Name: "type, t", Value: model.OrderTypeMarket},
			},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.MakeOrder(ctx, c.String("pair"), c.String("side"), c.Float64("qty"), c.String("type")))
			}),
		},
		{
			Name:  "market",
			Usage: "market order, direction long / short",
			Flags: []cli.Flag{
				pairFlag,
				cli.StringFlag{Name: "direction, d", Value: model.DirectionLong},
				cli.Float64Flag{Name: "qty, q"},
			},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.MarketOrder(ctx, c.String("pair"), c.String("direction"), c.Float64("qty")))
			}),
		},
		{
			Name:  "sltp",
			Usage: "set take-profit / stop-loss of a position",
			Flags: []cli.Flag{pairFlag, cli.Float64Flag{Name: "tp"}, cli.Float64Flag{Name: "sl"}},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.SLTPOrder(ctx, c.String("pair"), c.Float64("tp"), c.Float64("sl")))
			}),
		},
		{
			Name:  "close-all",
			Usage: "close every open position with market orders",
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.CloseAllPositions(ctx))
			}),
		},
		{
			Name:  "cancel-all",
			Usage: "cancel all open orders of a pair",
			Flags: []cli.Flag{pairFlag},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.CancelAllOrders(ctx, c.String("pair")))
			}),
		},
		{
			Name:  "position",
			Usage: "position of a pair",
			Flags: []cli.Flag{pairFlag},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.GetPosition(ctx, c.String("pair")))
			}),
		},
		{
			Name:  "get-order",
			Usage: "wait for an order and print its fill",
			Flags: []cli.Flag{pairFlag, cli.StringFlag{Name: "id"}},
			Action: run(func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope {
				return futures.Wrap(fc.GetOrder(ctx, c.String("pair"), c.String("id")))
			}),
		},
		{
			Name:   "serve",
			Usage:  "expose every operation over HTTP",
			Flags:  []cli.Flag{cli.StringFlag{Name: "addr", Usage: "overrides server.addr"}},
			Action: serve,
		},
	}
}

type action func(ctx context.Context, c *cli.Context, fc *futures.Client) futures.Envelope

// run 加载配置、组装容器，执行一次操作并打印 Envelope
func run(fn action) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ct, err := bootstrap(ctx, c)
		if err != nil {
			return err
		}
		defer ct.Close()

		return output(c, fn(ctx, c, ct.Client()))
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ct, err := bootstrap(ctx, c)
	if err != nil {
		return err
	}
	defer ct.Close()

	addr := ct.Config().Server.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}
	return httpapi.New(addr, ct.Client()).Run(ctx)
}

func bootstrap(ctx context.Context, c *cli.Context) (*container.Container, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(path)
	if err != nil {
		log.Error().Err(err).Str("config", path).Msg("load config failed")
		return nil, err
	}

	logger.Setup(logger.Options{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
		Compress:   cfg.App.LogCompress,
	})

	log.Info().
		Str("config", path).
		Bool("testnet", cfg.Bybit.Testnet).
		Str("account_type", cfg.Bybit.AccountType).
		Str("confirm_mode", cfg.Orders.ConfirmMode).
		Msg("unifut started")

	return container.New(ctx, cfg)
}

func output(c *cli.Context, env futures.Envelope) error {
	ok, err := console.NewPrinter(c.GlobalBool("pretty")).Print(env)
	if err != nil {
		return err
	}
	if !ok {
		return cli.NewExitError("", 1)
	}
	return nil
}
