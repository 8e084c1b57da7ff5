package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/label-compliance/internal/compliance"
	"github.com/ironsheep/label-compliance/internal/ocr"
	"github.com/ironsheep/label-compliance/internal/rules"
)

// cannedEngine returns the same words for every page.
type cannedEngine struct {
	words []ocr.Word
	err   error
}

func (e *cannedEngine) Name() string { return "canned" }

func (e *cannedEngine) Recognize(ctx context.Context, img []byte, width, height int) ([]ocr.Word, error) {
	return e.words, e.err
}

func (e *cannedEngine) Info(ctx context.Context) ocr.Info {
	return ocr.Info{Backend: "canned", Available: e.err == nil, Language: "eng"}
}

func newTestServer(t *testing.T, eng *cannedEngine) *Server {
	t.Helper()
	if eng == nil {
		eng = &cannedEngine{words: []ocr.Word{
			{Text: "MRP:", Confidence: 0.9, LineKey: "1"},
			{Text: "Rs.", Confidence: 0.9, LineKey: "1"},
			{Text: "150", Confidence: 0.9, LineKey: "1"},
		}}
	}
	checker, err := compliance.New(compliance.Deps{
		Rules:      rules.Default(),
		Recognizer: ocr.NewRecognizer(eng, time.Second, nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(checker, "1.2.3", nil)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 60, 60))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	s := newTestServer(t, nil)
	if s.checker == nil {
		t.Fatal("New() did not keep the checker")
	}
	if New(s.checker, "", nil).version != "dev" {
		t.Error("empty version should default to dev")
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	if resp == nil || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	serverInfo := result["serverInfo"].(map[string]interface{})
	if serverInfo["name"] != ServerName || serverInfo["version"] != "1.2.3" {
		t.Errorf("serverInfo: got %v", serverInfo)
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: "ping-1", Method: "ping"})
	if resp == nil || resp.Error != nil || resp.ID != "ping-1" {
		t.Errorf("unexpected ping response: %+v", resp)
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := newTestServer(t, nil)
	if resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", Method: "notifications/initialized"}); resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "nonexistent/method"})
	if resp == nil || resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("want -32601, got %+v", resp)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	want := map[string]bool{"label_check": true, "label_fields": true, "label_ocr_info": true}
	if len(tools) != len(want) {
		t.Errorf("got %d tools, want %d", len(tools), len(want))
	}
	for _, tool := range tools {
		if !want[tool.Name] {
			t.Errorf("unexpected tool %s", tool.Name)
		}
		if tool.Description == "" || tool.InputSchema["type"] != "object" {
			t.Errorf("%s: incomplete definition", tool.Name)
		}
	}
}

func TestRun(t *testing.T) {
	s := newTestServer(t, nil)
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n"))
	var out bytes.Buffer

	if err := s.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d responses, want 3:\n%s", len(lines), out.String())
	}
	var parseErr MCPResponse
	if err := json.Unmarshal([]byte(lines[1]), &parseErr); err != nil {
		t.Fatal(err)
	}
	if parseErr.Error == nil || parseErr.Error.Code != -32700 {
		t.Errorf("malformed line should yield -32700, got %s", lines[1])
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestServer(t, nil).Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &bytes.Buffer{})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMCPError_Marshal(t *testing.T) {
	data, err := json.Marshal(MCPError{
		Code:    -32000,
		Message: "Tool execution failed",
		Data:    map[string]string{"code": "RECOGNITION_FAILED"},
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded MCPError
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded.Code != -32000 || decoded.Message != "Tool execution failed" {
		t.Errorf("decoded = %+v", decoded)
	}
}

// writeTestPNG stores testPNG in a temp dir and returns its path.
func writeTestPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "label.png")
	if err := os.WriteFile(path, testPNG(t), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
