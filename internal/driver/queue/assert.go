package queue

import (
	"reflect"
	"strconv"

	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

type chainer struct {
	// describe is the phrase used in failure messages.
	describe string
	// needsExpected chainers read the first expected argument.
	needsExpected bool
	check         func(actual, expected any) bool
}

var chainers = map[string]chainer{
	"exist":        {describe: "exist", check: func(a, _ any) bool { return exists(a) }},
	"not.exist":    {describe: "not exist", check: func(a, _ any) bool { return !exists(a) }},
	"be.undefined": {describe: "be undefined", check: func(a, _ any) bool { return subject.IsUndefined(a) }},
	"be.null":      {describe: "be null", check: func(a, _ any) bool { return subject.IsNull(a) }},
	"be.ok":        {describe: "be truthy", check: func(a, _ any) bool { return subject.Truthy(a) }},
	"not.be.ok":    {describe: "be falsy", check: func(a, _ any) bool { return !subject.Truthy(a) }},
	"eq":           {describe: "equal", needsExpected: true, check: equal},
	"not.eq":       {describe: "not equal", needsExpected: true, check: func(a, e any) bool { return !equal(a, e) }},
	"have.length":  {describe: "have length", needsExpected: true, check: hasLength},
}

// Assert evaluates one should chainer against actual.
func Assert(name string, actual any, expected ...any) error {
	c, ok := chainers[name]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeUnknownChainer, map[string]string{"Chainer": name})
	}
	var want any
	if len(expected) > 0 {
		want = expected[0]
	}
	if c.check(actual, want) {
		return nil
	}
	metadata := map[string]string{
		"Actual":  subject.Stringify(actual),
		"Chainer": c.describe,
	}
	if c.needsExpected {
		metadata["Expected"] = subject.Stringify(want)
	}
	return apperrors.WithMetadata(apperrors.CodeAssertionFailed, metadata)
}

func exists(v any) bool {
	return !subject.IsNil(v) && !dom.IsEmptySelection(v)
}

// equal compares numbers by value and everything else deeply.
func equal(a, b any) bool {
	if af, ok := subject.Float(a); ok {
		bf, ok := subject.Float(b)
		return ok && af == bf
	}
	_, aString := a.(string)
	_, bString := b.(string)
	if aString || bString {
		return a == b
	}
	if subject.IsArrayLike(a) && subject.IsArrayLike(b) {
		as, bs := subject.ToSlice(a), subject.ToSlice(b)
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func hasLength(actual, expected any) bool {
	n, ok := subject.Length(actual)
	if !ok {
		return false
	}
	if s, isString := expected.(string); isString {
		want, err := strconv.Atoi(s)
		return err == nil && n == want
	}
	want, ok := subject.Float(expected)
	return ok && float64(n) == want
}
