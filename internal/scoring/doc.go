// Package scoring turns detected fields into a 0..100 score and a
// pass/partial/fail status. Both are pure functions of their inputs; the
// thresholds come from the loaded rule set.
package scoring
