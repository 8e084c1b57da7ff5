package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "label_check",
			Description: "Check a product label image (JPEG, PNG, WebP) or PDF for the mandatory declarations " +
				"(MRP, net quantity, manufacturer, country of origin, manufacturing date). Returns the extracted text, " +
				"every field with its value and confidence, a 0-100 score and a pass/partial/fail status. " +
				"Provide either a file path or base64 data with its MIME type.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the label image or PDF",
					},
					"data": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded file contents, used instead of path",
					},
					"mime_type": map[string]interface{}{
						"type":        "string",
						"description": "MIME type of data: image/jpeg, image/png, image/webp or application/pdf",
						"enum":        []string{"image/jpeg", "image/png", "image/webp", "application/pdf"},
					},
				},
			},
		},
		{
			Name:        "label_fields",
			Description: "List the configured compliance fields in report order with their icon keys, matchers and the score thresholds.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "label_ocr_info",
			Description: "Report whether the text recognition engine is available, its version, backend and language.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList responds with every tool definition.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
