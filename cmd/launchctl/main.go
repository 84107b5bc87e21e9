package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/services/launchpad"
)

const defaultAPI = "http://127.0.0.1:8090"

type globals struct {
	api    string
	token  string
	caller string
}

var nowFn = time.Now

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	g, rest, err := parseGlobals(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
	if err := cmd(g, rest[1:], stdout, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseGlobals(args []string) (globals, []string, error) {
	g := globals{
		api:    envOr("LAUNCHPAD_API", defaultAPI),
		token:  os.Getenv("LAUNCHPAD_TOKEN"),
		caller: os.Getenv("LAUNCHPAD_CALLER"),
	}
	fs := flag.NewFlagSet("launchctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&g.api, "api", g.api, "launchpad API base URL")
	fs.StringVar(&g.token, "token", g.token, "bearer token")
	fs.StringVar(&g.caller, "caller", g.caller, "caller address when the server runs without auth")
	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	return g, fs.Args(), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (g globals) client() *launchpad.Client {
	c := launchpad.NewClient(g.api)
	c.Token = g.token
	c.Caller = g.caller
	return c
}

func usage() string {
	return `Usage: launchctl [-api URL] [-token JWT | -caller ADDR] <command> [flags]

Commands:
  create -manifest sale.yaml            open a sale described by a YAML manifest
  sale -sale ADDR                       show a sale
  info -sale ADDR -addr ADDR            show a participant position
  deposit -sale ADDR -amount N          deposit reserve (human units, -decimals)
  withdraw -sale ADDR -amount N         withdraw reserve during phases one and two
  create-pool -sale ADDR                settle the sale into its pool
  claim-liquidity -sale ADDR            claim pool shares
  claim-incentives -sale ADDR           claim incentives or the issuer refund
  emergency-withdraw -sale ADDR         recover funds from a stopped sale
  stop -sale ADDR                       stop a sale (registry owner)
  token -secret S -subject ADDR         sign a bearer token`
}

type command func(g globals, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"create":             runCreate,
	"sale":               runSale,
	"info":               runInfo,
	"deposit":            runAmount("deposit"),
	"withdraw":           runAmount("withdraw"),
	"create-pool":        runCreatePool,
	"claim-liquidity":    runPayout("claim-liquidity"),
	"claim-incentives":   runPayout("claim-incentives"),
	"emergency-withdraw": runPayout("emergency-withdraw"),
	"stop":               runStop,
	"token":              runToken,
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("launchctl "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func saleFlag(fs *flag.FlagSet) *string {
	return fs.String("sale", "", "sale asset address")
}

func parseAddr(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(strings.TrimSpace(raw)) {
		return common.Address{}, fmt.Errorf("-%s must be a hex address", name)
	}
	return common.HexToAddress(strings.TrimSpace(raw)), nil
}

func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

func runCreate(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("create", stderr)
	path := fs.String("manifest", "", "path to the sale manifest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-manifest required")
	}
	manifest, err := loadManifest(*path)
	if err != nil {
		return err
	}
	body, err := manifest.Body(nowFn())
	if err != nil {
		return err
	}
	sale, err := g.client().CreateSale(context.Background(), body)
	if err != nil {
		return err
	}
	return printJSON(stdout, sale)
}

func runSale(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("sale", stderr)
	sale := saleFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseAddr("sale", *sale)
	if err != nil {
		return err
	}
	view, err := g.client().Sale(context.Background(), asset)
	if err != nil {
		return err
	}
	return printJSON(stdout, view)
}

func runInfo(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("info", stderr)
	sale := saleFlag(fs)
	addr := fs.String("addr", "", "participant address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseAddr("sale", *sale)
	if err != nil {
		return err
	}
	holder, err := parseAddr("addr", *addr)
	if err != nil {
		return err
	}
	view, err := g.client().Participant(context.Background(), asset, holder)
	if err != nil {
		return err
	}
	return printJSON(stdout, view)
}

func runAmount(action string) command {
	return func(g globals, args []string, stdout, stderr io.Writer) error {
		fs := newFlagSet(action, stderr)
		sale := saleFlag(fs)
		amount := fs.String("amount", "", "reserve amount in human units")
		decimals := fs.Uint("decimals", 18, "reserve asset decimals")
		if err := fs.Parse(args); err != nil {
			return err
		}
		asset, err := parseAddr("sale", *sale)
		if err != nil {
			return err
		}
		if *decimals > 36 {
			return errors.New("-decimals above 36")
		}
		base, err := toBaseUnits(*amount, uint8(*decimals))
		if err != nil {
			return err
		}
		ctx := context.Background()
		if action == "deposit" {
			view, err := g.client().Deposit(ctx, asset, base)
			if err != nil {
				return err
			}
			return printJSON(stdout, view)
		}
		resp, err := g.client().Withdraw(ctx, asset, base)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "penalty retained: %s\n", fromBaseUnits(resp.Penalty, uint8(*decimals)))
		return printJSON(stdout, resp.Participant)
	}
}

func runCreatePool(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("create-pool", stderr)
	sale := saleFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseAddr("sale", *sale)
	if err != nil {
		return err
	}
	view, err := g.client().CreatePool(context.Background(), asset)
	if err != nil {
		return err
	}
	return printJSON(stdout, view)
}

func runPayout(action string) command {
	return func(g globals, args []string, stdout, stderr io.Writer) error {
		fs := newFlagSet(action, stderr)
		sale := saleFlag(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		asset, err := parseAddr("sale", *sale)
		if err != nil {
			return err
		}
		amount, err := g.client().Payout(context.Background(), asset, action)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %s\n", action, amount)
		return nil
	}
}

func runStop(g globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stop", stderr)
	sale := saleFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asset, err := parseAddr("sale", *sale)
	if err != nil {
		return err
	}
	view, err := g.client().Stop(context.Background(), asset)
	if err != nil {
		return err
	}
	return printJSON(stdout, view)
}

func runToken(_ globals, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("token", stderr)
	secret := fs.String("secret", os.Getenv("LAUNCHPAD_ADMIN_SECRET"), "HS256 signing secret")
	issuer := fs.String("issuer", "launchpad", "token issuer")
	subject := fs.String("subject", "", "caller address the token speaks for")
	admin := fs.Bool("admin", false, "grant the admin scope")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	addr, err := parseAddr("subject", *subject)
	if err != nil {
		return err
	}
	var scopes []string
	if *admin {
		scopes = append(scopes, launchpad.AdminScope)
	}
	token, err := launchpad.IssueToken(*secret, *issuer, addr, scopes, *ttl, nowFn())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
