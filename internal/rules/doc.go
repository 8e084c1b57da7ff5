// Package rules loads the field rules that drive label extraction.
//
// A rule file is YAML validated against an embedded JSON schema. It lists the
// mandatory fields in report order; each field carries a presentation icon
// key and one or more regular-expression matchers. Matchers have a priority,
// a specificity in (0, 1] that scales the recognizer's confidence, and a
// named normalizer (price, quantity, date, text, country, code or identity)
// that canonicalizes and vets captured values.
//
// Patterns are compiled case-insensitive and multi-line. The captured value
// is the named group "value" when present, otherwise group 1, otherwise the
// whole match. A match in which the named group "exclude" participates is
// discarded.
//
// Two presets are embedded: "default" with the five mandatory declarations
// and "extended", which adds expiry date, batch number and FSSAI licence.
//
// A loaded RuleSet is read-only and safe to share between goroutines.
// Loading errors carry common.CodeConfiguration.
package rules
