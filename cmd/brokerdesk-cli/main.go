package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"brokerdesk/internal/broker"
	"brokerdesk/internal/config"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/render"
	"brokerdesk/internal/trading"
	"brokerdesk/internal/util"
)

var Version = "dev"

// Exit statuses.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
)

func main() {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	os.Exit(run(os.Args, os.Stdout, os.Stderr, os.LookupEnv, broker.OpenProvider))
}

// openFunc builds the provider session once credentials are resolved.
type openFunc func(config.Provider, config.Credentials) (*broker.Session, error)

type cliApp struct {
	stdout io.Writer
	stderr io.Writer
	lookup config.LookupFunc
	open   openFunc
}

func run(args []string, stdout, stderr io.Writer, lookup config.LookupFunc, open openFunc) int {
	a := &cliApp{stdout: stdout, stderr: stderr, lookup: lookup, open: open}
	err := a.app().Run(args)
	if err == nil {
		return exitOK
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	// Flag parsing and unknown commands.
	render.Error(stderr, "usage", err.Error())
	return exitValidation
}

func (a *cliApp) app() *cli.App {
	return &cli.App{
		Name:      "brokerdesk-cli",
		Usage:     "inspect the brokerage account, positions and orders",
		Version:   Version,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		// Exit codes are mapped by run.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (default $" + config.EnvConfigPath + ")",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "provider backend (alpaca, simulator)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "provider REST endpoint",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text, json); default text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "account",
				Usage:  "show account status",
				Action: a.cmdAccount,
			},
			{
				Name:   "positions",
				Usage:  "list open positions",
				Action: a.cmdPositions,
			},
			{
				Name:  "orders",
				Usage: "list or place orders",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list orders",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "status",
								Value: string(domain.OrderStatusOpen),
								Usage: "order status (open, closed, all)",
							},
							&cli.IntFlag{
								Name:  "limit",
								Value: domain.DefaultOrderLimit,
								Usage: "maximum number of orders",
							},
						},
						Action: a.cmdListOrders,
					},
					{
						Name:  "place",
						Usage: "submit an order",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Required: true, Usage: "ticker symbol"},
							&cli.Int64Flag{Name: "qty", Aliases: []string{"q"}, Required: true, Usage: "whole share quantity"},
							&cli.StringFlag{Name: "side", Required: true, Usage: "buy or sell"},
							&cli.StringFlag{Name: "type", Value: string(domain.OrderTypeMarket), Usage: "market or limit"},
							&cli.StringFlag{Name: "time-in-force", Value: string(domain.TimeInForceGTC), Usage: "day, gtc or opg"},
							&cli.Float64Flag{Name: "limit-price", Usage: "limit price for limit orders"},
						},
						Action: a.cmdPlaceOrder,
					},
				},
			},
		},
	}
}

// service loads configuration, resolves credentials and opens the session.
func (a *cliApp) service(c *cli.Context) (*trading.Service, error) {
	path := c.String("config")
	if path == "" {
		path, _ = a.lookup(config.EnvConfigPath)
	}
	cfg, err := config.LoadWithEnv(path, a.lookup)
	if err != nil {
		return nil, a.fail("loading config", err)
	}
	if v := c.String("provider"); v != "" {
		cfg.Provider.Name = v
	}
	if v := c.String("base-url"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	logger := util.NewLogger(cfg.Logging, a.stderr)

	creds, err := cfg.Alpaca.Resolve()
	if err != nil {
		return nil, a.fail("configuration", err)
	}
	sess, err := a.open(cfg.Provider, creds)
	if err != nil {
		return nil, a.fail("configuration", err)
	}
	logger.Debug("session opened", "provider", sess.Name(), "endpoint", sess.Endpoint())

	return trading.NewService(sess, logger), nil
}

// fail prints err as a single line and maps it to an exit status.
func (a *cliApp) fail(action string, err error) error {
	render.Error(a.stderr, action, err.Error())
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return cli.Exit("", exitValidation)
	}
	return cli.Exit("", exitFailure)
}

// finish renders a successful result or reports the failure.
func finish[T any](a *cliApp, action string, res domain.Result[T], err error, show func(T)) error {
	if err != nil {
		return a.fail(action, err)
	}
	if e, failed := res.Err(); failed {
		render.Error(a.stderr, action, e.Message)
		return cli.Exit("", exitFailure)
	}
	v, _ := res.Value()
	show(v)
	return nil
}

func (a *cliApp) cmdAccount(c *cli.Context) error {
	svc, err := a.service(c)
	if err != nil {
		return err
	}
	res, err := svc.GetAccountStatus(ctx(c))
	return finish(a, "fetching account", res, err, func(acct domain.AccountStatus) {
		render.Account(a.stdout, acct)
	})
}

func (a *cliApp) cmdPositions(c *cli.Context) error {
	svc, err := a.service(c)
	if err != nil {
		return err
	}
	res, err := svc.ListPositions(ctx(c))
	return finish(a, "fetching positions", res, err, func(p []domain.Position) {
		render.Positions(a.stdout, p)
	})
}

func (a *cliApp) cmdListOrders(c *cli.Context) error {
	q := domain.OrderQuery{
		Status: domain.OrderStatusFilter(c.String("status")),
		Limit:  c.Int("limit"),
	}
	// Reject bad input before touching credentials or the network.
	q, err := q.Normalize()
	if err != nil {
		return a.fail("listing orders", err)
	}

	svc, err := a.service(c)
	if err != nil {
		return err
	}
	res, err := svc.ListOrders(ctx(c), q)
	return finish(a, "listing orders", res, err, func(o []domain.Order) {
		render.Orders(a.stdout, q.Status, o)
	})
}

func (a *cliApp) cmdPlaceOrder(c *cli.Context) error {
	req := domain.OrderRequest{
		Symbol:      c.String("symbol"),
		Qty:         c.Int64("qty"),
		Side:        domain.OrderSide(c.String("side")),
		Type:        domain.OrderType(c.String("type")),
		TimeInForce: domain.TimeInForce(c.String("time-in-force")),
	}
	if c.IsSet("limit-price") {
		lp := c.Float64("limit-price")
		req.LimitPrice = &lp
	}
	req, err := req.Normalize()
	if err != nil {
		return a.fail("placing order", err)
	}

	svc, err := a.service(c)
	if err != nil {
		return err
	}
	res, err := svc.PlaceOrder(ctx(c), req)
	return finish(a, "placing order", res, err, func(o domain.Order) {
		render.OrderConfirmation(a.stdout, o)
	})
}

func ctx(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
