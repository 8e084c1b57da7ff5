// Package report writes the results of a batch of checks as JSON lines or as
// an XLSX workbook. Reports cover one invocation only; nothing is persisted
// between runs.
package report
