// Package subject models the values that flow through a command chain.
//
// The driver treats a subject as opaque except for a handful of
// capabilities, each expressed as a narrow interface or predicate:
//
//   - null-ness: [IsNil], [IsUndefined] and the [Null] sentinel. A Go nil is
//     "undefined"; Null, nil pointers and nil funcs are "null".
//   - array-likeness: [ArrayLike], plus Go slices, arrays and strings.
//   - promise shape: [Thenable], implemented by [*Promise].
//   - callability: [Callable], plus any Go func value.
//   - the durable spread marker: [Spreader], carried by [*Array].
//
// Property paths are read with [Lookup], which understands dotted and
// bracketed paths over maps, slices, structs, [Getter] values and methods.
package subject
