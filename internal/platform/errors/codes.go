// Package errors provides templated driver errors keyed by a stable taxonomy.
package errors

// Code is a machine-readable error taxonomy key.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Deferred callback errors
	CodeMixedSyncAsync      Code = "then.callback_mixes_sync_and_async"
	CodeThenInvalidArgument Code = "then.invalid_argument"
	CodeTimedOut            Code = "invoke_its.timed_out"

	// Property and function resolver errors
	CodeInvalidArgCount                Code = "invoke_its.invalid_num_of_args"
	CodeInvalidOptionsArg              Code = "invoke_its.invalid_options_arg"
	CodeNullPropertyName               Code = "invoke_its.null_or_undefined_property_name"
	CodeInvalidPropNameArg             Code = "invoke_its.invalid_prop_name_arg"
	CodeNonexistentProp                Code = "invoke_its.nonexistent_prop"
	CodeItsSubjectNullOrUndefined      Code = "its.subject_null_or_undefined"
	CodeInvokeSubjectNullOrUndefined   Code = "invoke.subject_null_or_undefined"
	CodeItsNullOrUndefinedPropValue    Code = "its.null_or_undefined_prop_value"
	CodeInvokeNullOrUndefinedPropValue Code = "invoke.null_or_undefined_prop_value"
	CodePropNotFunction                Code = "invoke.prop_not_a_function"

	// Collection combinator errors
	CodeEachInvalidArgument Code = "each.invalid_argument"
	CodeNonArraySubject     Code = "each.non_array"
	CodeInvalidSpreadType   Code = "spread.invalid_type"

	// Queue errors
	CodeUnknownCommand      Code = "queue.unknown_command"
	CodeChildWithoutSubject Code = "queue.child_without_subject"
	CodeCommandTimedOut     Code = "queue.command_timed_out"
	CodeElementNotFound     Code = "queue.element_not_found"

	// Assertion errors
	CodeAssertionFailed Code = "should.assertion_failed"
	CodeUnknownChainer  Code = "should.unknown_chainer"
)

// SubjectNullOrUndefined returns the command-keyed code raised when a
// resolver receives a null or undefined subject.
func SubjectNullOrUndefined(cmd string) Code {
	if cmd == "invoke" {
		return CodeInvokeSubjectNullOrUndefined
	}
	return CodeItsSubjectNullOrUndefined
}

// NullOrUndefinedPropValue returns the command-keyed code raised when a path
// resolves to a null or undefined value.
func NullOrUndefinedPropValue(cmd string) Code {
	if cmd == "invoke" {
		return CodeInvokeNullOrUndefinedPropValue
	}
	return CodeItsNullOrUndefinedPropValue
}
