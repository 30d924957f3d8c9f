package connectors

import (
	"context"

	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// Commands returns the connector command definitions bound to s.
func Commands(s Scheduler) []command.Definition {
	exec := func(inv command.Invocation) Exec {
		return Exec{Scheduler: s, Command: inv.Command, This: inv.This}
	}
	return []command.Definition{
		{
			Name: "then",
			Kind: command.Dual,
			Run: func(ctx context.Context, inv command.Invocation) (any, error) {
				ex := exec(inv)
				rawOptions, fn := splitCallbackArgs(inv.Args)
				if !subject.IsCallable(fn) {
					return nil, invalidCallback(ex)
				}
				opts, _ := ParseOptions(rawOptions)
				return Then(ctx, ex, inv.Subject, opts, fn)
			},
		},
		{
			Name: "each",
			Kind: command.Child,
			Run: func(ctx context.Context, inv command.Invocation) (any, error) {
				return Each(ctx, exec(inv), inv.Subject, inv.Args...)
			},
		},
		{
			Name: "spread",
			Kind: command.Child,
			Run: func(ctx context.Context, inv command.Invocation) (any, error) {
				return Spread(ctx, exec(inv), inv.Subject, inv.Args...)
			},
		},
		{
			Name: "its",
			Kind: command.Query,
			Query: func(cmd *command.Command, args []any) (command.Resolver, error) {
				return BindIts(Exec{Scheduler: s, Command: cmd}, args...)
			},
		},
		{
			Name: "invoke",
			Kind: command.Query,
			Query: func(cmd *command.Command, args []any) (command.Resolver, error) {
				return BindInvoke(Exec{Scheduler: s, Command: cmd}, args...)
			},
		},
	}
}
