// Package server implements the MCP (Model Context Protocol) server for label
// compliance checks.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - label_check: Check a label image or PDF, by path or base64 data
//   - label_fields: List configured fields, matchers and thresholds
//   - label_ocr_info: Report recognition engine availability
//
// The server keeps no state between calls. Every label_check is an
// independent run with its own run ID.
//
// # Error Handling
//
// Malformed calls are answered with -32602. Pipeline failures are answered
// with -32000 and data {"code": ..., "error": ...}, where code is one of the
// common.Code values such as UNSUPPORTED_IMAGE_FORMAT. An unavailable
// recognition engine is not an error: label_check returns the synthetic
// result with "synthetic": true.
package server
