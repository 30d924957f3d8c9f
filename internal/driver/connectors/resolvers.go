package connectors

import (
	"fmt"
	"strings"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

// nullTolerantChainers are the assertions that expect a missing value, so a
// preceding its/invoke yields null or undefined instead of failing.
var nullTolerantChainers = map[string]bool{
	"not.exist":    true,
	"be.undefined": true,
	"not.be.ok":    true,
	"be.null":      true,
	"eq":           true,
	"not.eq":       true,
}

func upcomingAssertion(next *command.Command) bool {
	if next == nil || next.Kind() != command.Assertion {
		return false
	}
	args := next.Args()
	if len(args) == 0 {
		return false
	}
	chainer, _ := args[0].(string)
	return nullTolerantChainers[chainer]
}

// isPath accepts any truthy path and the number zero.
func isPath(path any) bool {
	return subject.Truthy(path) || subject.IsZeroNumber(path)
}

func propString(path any) string {
	if s, ok := path.(string); ok {
		return s
	}
	return subject.Stringify(path)
}

// BindIts validates its(path[, options]) and returns the resolver reading
// path off the live subject. When bound for an invoke command the errors
// name invoke instead.
func BindIts(ex Exec, args ...any) (command.Resolver, error) {
	cmd := "its"
	if ex.commandName() == "invoke" {
		cmd = "invoke"
	}

	var path, rawOptions any
	if len(args) > 0 {
		path = args[0]
	}
	if len(args) > 1 {
		rawOptions = args[1]
	}
	if len(args) > 2 {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgCount, map[string]string{"Cmd": cmd})
	}
	opts, ok := ParseOptions(rawOptions)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidOptionsArg, map[string]string{"Cmd": cmd})
	}
	if !isPath(path) {
		return nil, apperrors.WithMetadata(apperrors.CodeNullPropertyName, map[string]string{
			"Cmd":        cmd,
			"Identifier": "property",
		})
	}
	if !subject.IsStringOrNumber(path) {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidPropNameArg, map[string]string{
			"Cmd":        cmd,
			"Identifier": "property",
		})
	}

	prop := propString(path)
	log := ex.commandLog()
	if log == nil && opts.LogEnabled() {
		log = ex.Scheduler.NewLog(cmdlog.Options{Name: cmd, Message: "." + prop, Timeout: opts.Timeout})
		ex.Command.Set(command.AttrLog, log)
	}
	if opts.Timeout != 0 {
		ex.Command.Set(command.AttrTimeout, opts.Timeout)
	}
	ex.Command.Set(command.AttrEnsureExistenceFor, "subject")

	return func(subj any) (any, error) {
		if subject.IsNil(subj) {
			return nil, apperrors.WithMetadata(apperrors.SubjectNullOrUndefined(cmd), map[string]string{
				"Cmd":   cmd,
				"Prop":  prop,
				"Value": subject.Stringify(subj),
			})
		}

		subj = ex.remote(subj)
		value, found := subject.Lookup(subj, path)

		if log != nil && ex.isCurrent() {
			log.Set(cmdlog.Update{
				Element: elementOf(subj),
				ConsoleProps: func() cmdlog.Props {
					return cmdlog.Props{
						"Property": "." + prop,
						"Subject":  subj,
						"Yielded":  dom.Formatted(value),
					}
				},
			})
		}

		if subject.IsNil(value) && !upcomingAssertion(ex.Command.Next()) {
			if !found {
				return nil, apperrors.WithMetadata(apperrors.CodeNonexistentProp, map[string]string{
					"Cmd":        cmd,
					"Prop":       prop,
					"Value":      subject.Stringify(value),
					"Suggestion": suggestPath(subj, path),
				})
			}
			return nil, apperrors.WithMetadata(apperrors.NullOrUndefinedPropValue(cmd), map[string]string{
				"Prop":  prop,
				"Value": subject.Stringify(value),
			})
		}
		return value, nil
	}, nil
}

// BindInvoke validates invoke(path, ...args) or invoke(options, path,
// ...args) and returns the resolver calling the function at path with args.
func BindInvoke(ex Exec, args ...any) (command.Resolver, error) {
	var (
		rawOptions any
		path       any
		callArgs   []any
	)
	if len(args) > 0 && subject.IsStringOrNumber(args[0]) {
		path = args[0]
		callArgs = args[1:]
	} else {
		if len(args) > 0 {
			rawOptions = args[0]
		}
		if len(args) > 1 {
			path = args[1]
		}
		if len(args) > 2 {
			callArgs = args[2:]
		}
	}
	callArgs = append([]any(nil), callArgs...)

	if !subject.IsStringOrNumber(path) {
		if subject.IsNil(path) && isObjectLike(rawOptions) && !subject.IsCallable(rawOptions) {
			return nil, apperrors.WithMetadata(apperrors.CodeNullPropertyName, map[string]string{
				"Cmd":        "invoke",
				"Identifier": "function",
			})
		}
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidPropNameArg, map[string]string{
			"Cmd":        "invoke",
			"Identifier": "function",
		})
	}

	prop := propString(path)

	var log *cmdlog.Log
	if opts, ok := ParseOptions(rawOptions); ok && opts.LogEnabled() {
		log = ex.Scheduler.NewLog(cmdlog.Options{Name: "invoke", Message: "." + prop + "()", Timeout: opts.Timeout})
		ex.Command.Set(command.AttrLog, log)
	}

	itsArgs := []any{path}
	if rawOptions != nil {
		itsArgs = append(itsArgs, rawOptions)
	}
	its, err := BindIts(ex, itsArgs...)
	if err != nil {
		return nil, err
	}

	// Invocation does not require a non-null result.
	ex.Command.Set(command.AttrEnsureExistenceFor, nil)

	parts := strings.Split(prop, ".")
	last := parts[len(parts)-1]
	parentPath := parts[:len(parts)-1]

	return func(subj any) (any, error) {
		subj = ex.remote(subj)

		if _, err := its(subj); err != nil {
			return nil, err
		}

		parent := subj
		if len(parentPath) > 0 {
			parent, _ = subject.LookupSegments(subj, parentPath)
		}
		member, _ := subject.Member(parent, last)
		if !subject.IsCallable(member) {
			return nil, apperrors.WithMetadata(apperrors.CodePropNotFunction, map[string]string{
				"Prop": prop,
				"Type": subject.FriendlyTypeOf(member),
			})
		}

		value, err := subject.Call(member, parent, callArgs...)
		if err != nil {
			return nil, err
		}

		if log != nil && ex.isCurrent() {
			log.Set(cmdlog.Update{
				Element: elementOf(subj),
				ConsoleProps: func() cmdlog.Props {
					return cmdlog.Props{
						"name":           "invoke",
						"Function":       fmt.Sprintf(".%s(%s)", prop, joinArgs(callArgs)),
						"Subject":        subj,
						"With Arguments": callArgs,
						"Yielded":        value,
					}
				},
			})
		}
		return value, nil
	}, nil
}

func elementOf(subj any) any {
	if dom.IsElement(subj) {
		return subj
	}
	return nil
}

func joinArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, subject.Stringify(arg))
	}
	return strings.Join(parts, ", ")
}
