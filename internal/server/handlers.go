package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/compliance"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "label_check").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data carries the pipeline error code.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var argErr *argumentError
		if errors.As(err, &argErr) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", map[string]string{
			"code":  string(common.CodeOf(err)),
			"error": err.Error(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "label_check":
		return s.handleLabelCheck(ctx, args)
	case "label_fields":
		return s.handleLabelFields()
	case "label_ocr_info":
		return s.checker.EngineInfo(ctx), nil
	default:
		return nil, &argumentError{fmt.Sprintf("unknown tool: %s", name)}
	}
}

// argumentError marks a malformed tool call, reported as -32602.
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

// LabelCheckArgs are the arguments of label_check.
type LabelCheckArgs struct {
	Path     string `json:"path"`
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

func (s *Server) handleLabelCheck(ctx context.Context, args json.RawMessage) (*compliance.Result, error) {
	var a LabelCheckArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, &argumentError{"invalid arguments: " + err.Error()}
		}
	}

	switch {
	case a.Path != "" && a.Data != "":
		return nil, &argumentError{"provide either path or data, not both"}
	case a.Path != "":
		return s.checker.CheckFile(ctx, a.Path)
	case a.Data != "":
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, &argumentError{"data is not valid base64: " + err.Error()}
		}
		mimeType := a.MIMEType
		if mimeType == "" {
			mimeType = compliance.DetectMIME("", data)
		}
		return s.checker.Check(ctx, data, mimeType)
	default:
		return nil, &argumentError{"path or data is required"}
	}
}

// FieldInfo describes one configured field.
type FieldInfo struct {
	Name     string        `json:"name"`
	Icon     string        `json:"icon"`
	Matchers []MatcherInfo `json:"matchers"`
}

// MatcherInfo describes one matcher of a field.
type MatcherInfo struct {
	Priority    int     `json:"priority"`
	Pattern     string  `json:"pattern"`
	Specificity float64 `json:"specificity"`
	Normalize   string  `json:"normalize"`
}

// FieldsResult is returned by label_fields.
type FieldsResult struct {
	Version int         `json:"version"`
	Pass    int         `json:"pass_threshold"`
	Partial int         `json:"partial_threshold"`
	Fields  []FieldInfo `json:"fields"`
}

func (s *Server) handleLabelFields() (*FieldsResult, error) {
	rs := s.checker.Rules()
	out := &FieldsResult{
		Version: rs.Version,
		Pass:    rs.Thresholds.Pass,
		Partial: rs.Thresholds.Partial,
		Fields:  make([]FieldInfo, 0, len(rs.Rules)),
	}
	for _, r := range rs.Rules {
		fi := FieldInfo{Name: r.Name, Icon: r.Icon}
		for _, m := range r.Matchers {
			fi.Matchers = append(fi.Matchers, MatcherInfo{
				Priority:    m.Priority,
				Pattern:     m.Pattern.String(),
				Specificity: m.Specificity,
				Normalize:   m.Normalizer,
			})
		}
		out.Fields = append(out.Fields, fi)
	}
	return out, nil
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
