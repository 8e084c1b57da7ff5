// Package fallback produces the field list of a synthetic result, used when
// no recognition engine is available. It never inspects the input and never
// reports a field as detected.
package fallback
