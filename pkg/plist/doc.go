// Package plist transcodes between TDLib's JSON and the Lisp property-list
// syntax read by telega.el.
//
// Both directions are single-pass scanners that write the target syntax
// while reading the source, without building a value tree:
//
//	FromJSON: {"@type":"ok","n":[1,2.0,true,false,null]}
//	          -> (:@type "ok" :n [1 2.0 t :false nil])
//	ToJSON:   the reverse.
//
// The grammars are fixed so that every value has one textual form on each
// side and a round trip keeps its type: integers stay integers, floats
// always carry a decimal point, and true, false and null map to the reserved
// tokens t, :false and nil. :false is only read as false in value position;
// in key position it names the key "false".
//
// Conversions read from a byte slice and append to a [Buffer]. A Buffer is
// owned by one goroutine; callers that convert concurrently give each
// goroutine its own [Pair] and Reset it between messages so storage is
// reused. A failed conversion returns a [*SyntaxError] and leaves the
// destination exactly as it was before the call.
package plist
