package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jmylchreest/clashui/internal/adapter/output"
	"github.com/jmylchreest/clashui/internal/core"
	"github.com/jmylchreest/clashui/internal/gateway"
	"github.com/jmylchreest/clashui/internal/model"
	"github.com/jmylchreest/clashui/internal/repl"
	"github.com/jmylchreest/clashui/internal/session"
)

// app binds the prompt commands to one controller connection.
type app struct {
	client    *gateway.Client
	session   *session.Session
	formatter output.Formatter
	out       io.Writer
}

// registry builds the prompt's command table.
func (a *app) registry() *repl.Registry {
	reg := repl.NewRegistry()

	reg.Register(repl.Command{
		Name:    "print",
		Usage:   "print <what> [name]",
		Help:    "Print selectors, proxies or daemon state (print alone lists what)",
		MinArgs: 0,
		MaxArgs: repl.Unbounded,
		Run:     repl.Group(a.printRegistry(), a.out),
	})
	reg.Register(repl.Command{
		Name:    "select",
		Usage:   "select <selector> <index>",
		Help:    "Select proxy for selector by its index",
		MinArgs: 2,
		MaxArgs: 2,
		Run:     a.selectProxy,
	})
	reg.Register(repl.Command{
		Name:    "pselect",
		Usage:   "pselect <provider> <proxy>",
		Help:    "Select proxy for a proxy provider",
		MinArgs: 2,
		MaxArgs: 2,
		Run: func(ctx context.Context, args []string) error {
			return a.client.SelectProvider(ctx, args[0], args[1])
		},
	})
	reg.Register(repl.Command{
		Name: "update",
		Help: "Update selector and proxy information",
		Run: func(ctx context.Context, args []string) error {
			err := a.session.Refresh(ctx)
			if gateway.IsKind(err, gateway.KindTransport) {
				return fmt.Errorf("daemon at %s unreachable, keeping previous proxies: %w", a.client.Endpoint(), err)
			}
			return err
		},
	})
	reg.Register(repl.Command{
		Name:    "reload",
		Usage:   "reload <path>",
		Help:    "Reload the daemon configuration from a file",
		MinArgs: 1,
		MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			return a.client.ReloadConfig(ctx, args[0])
		},
	})
	reg.Register(repl.Command{
		Name:    "healthcheck",
		Usage:   "healthcheck <provider>",
		Help:    "Run a health check on a proxy provider",
		MinArgs: 1,
		MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.ProviderHealth(ctx, args[0]))
		},
	})
	reg.Register(repl.Command{
		Name: "h",
		Help: "Print this help",
		Run: func(ctx context.Context, args []string) error {
			reg.WriteHelp(a.out)
			return nil
		},
	})
	reg.Register(repl.Command{
		Name: "q",
		Help: "Quit client",
		Run: func(ctx context.Context, args []string) error {
			return repl.ErrQuit
		},
	})

	return reg
}

// printRegistry builds the sub-commands of print.
func (a *app) printRegistry() *repl.Registry {
	sub := repl.NewRegistry()

	sub.Register(repl.Command{Name: "selector", Usage: "print selector <name>", MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			return a.session.PrintSelectorSummary(a.out, args[0])
		}})
	sub.Register(repl.Command{Name: "selectors",
		Run: func(ctx context.Context, args []string) error {
			return a.session.PrintSelectorNames(a.out)
		}})
	sub.Register(repl.Command{Name: "proxies",
		Run: func(ctx context.Context, args []string) error {
			names, err := a.client.ProxyNames(ctx)
			if err != nil {
				return err
			}
			return a.formatter.FormatNames(a.out, names)
		}})
	sub.Register(repl.Command{Name: "proxy", Usage: "print proxy <name>", MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Proxy(ctx, args[0]))
		}})
	sub.Register(repl.Command{Name: "delay", Usage: "print delay <name>", MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			d, err := a.client.ProxyDelay(ctx, args[0])
			if err != nil {
				return err
			}
			return a.formatter.FormatDelays(a.out, []model.DelayResult{{Name: args[0], Delay: d}})
		}})
	sub.Register(repl.Command{Name: "delays", Usage: "print delays [delay|name] [asc|desc]", MaxArgs: 2,
		Run: a.printDelays})
	sub.Register(repl.Command{Name: "version",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Version(ctx))
		}})
	sub.Register(repl.Command{Name: "config",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Config(ctx))
		}})
	sub.Register(repl.Command{Name: "rules",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Rules(ctx))
		}})
	sub.Register(repl.Command{Name: "connections",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Connections(ctx))
		}})
	sub.Register(repl.Command{Name: "traffic",
		Run: func(ctx context.Context, args []string) error {
			t, err := a.client.Traffic(ctx)
			if err != nil {
				return err
			}
			return a.formatter.FormatTraffic(a.out, t)
		}})
	sub.Register(repl.Command{Name: "logs",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Logs(ctx))
		}})
	sub.Register(repl.Command{Name: "providers",
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Providers(ctx))
		}})
	sub.Register(repl.Command{Name: "provider", Usage: "print provider <name>", MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, args []string) error {
			return a.printValue(a.client.Provider(ctx, args[0]))
		}})

	return sub
}

func (a *app) selectProxy(ctx context.Context, args []string) error {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid proxy index %q", args[1])
	}
	_, err = a.session.SelectByIndex(ctx, args[0], index)
	return err
}

// printDelays tests every proxy. With a sort field the results are ranked,
// otherwise they keep the daemon's order.
func (a *app) printDelays(ctx context.Context, args []string) error {
	opts := core.DefaultSortOptions()
	if len(args) > 0 {
		field, err := core.ParseSortField(args[0])
		if err != nil {
			return err
		}
		opts.Field = field
	}
	if len(args) > 1 {
		order, err := core.ParseSortOrder(args[1])
		if err != nil {
			return err
		}
		opts.Order = order
	}

	results, err := a.client.ProxyDelays(ctx)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		core.SortDelays(results, opts)
	}
	return a.formatter.FormatDelays(a.out, results)
}

// printValue renders the result of a gateway read.
func (a *app) printValue(v any, err error) error {
	if err != nil {
		return err
	}
	return a.formatter.FormatValue(a.out, v)
}
