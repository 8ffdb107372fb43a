package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// NotFoundError is returned for lookups of unknown tasks.
	NotFoundError = -32004
)

const protocolVersion = "2024-11-05"

// MCPTransport handles JSON-RPC 2.0 communication over a line oriented stream,
// one request per line.
type MCPTransport struct {
	reader    *bufio.Reader
	writer    io.Writer
	server    *MCPServer
	logger    *log.Logger
	version   string
	connected bool
	mu        sync.Mutex
}

func NewMCPTransport(server *MCPServer, in io.Reader, out io.Writer, logger *log.Logger, version string) *MCPTransport {
	if logger == nil {
		logger = log.Default()
	}
	return &MCPTransport{
		reader:    bufio.NewReader(in),
		writer:    out,
		server:    server,
		logger:    logger,
		version:   version,
		connected: true,
	}
}

// Start serves requests until the input ends or the client sends exit.
func (t *MCPTransport) Start() error {
	for {
		line, err := t.reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			response, exit := t.safeProcess(line)
			if response != nil {
				if werr := t.sendResponse(response); werr != nil {
					if strings.Contains(werr.Error(), "broken pipe") {
						t.logger.Printf("MCP transport: client disconnected: %v", werr)
						return nil
					}
					return werr
				}
			}
			if exit {
				t.logger.Println("MCP transport: exit requested")
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				t.logger.Println("MCP transport: client disconnected")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", err)
		}
	}
}

func (t *MCPTransport) safeProcess(line []byte) (response *JSONRPCResponse, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("MCP transport: panic recovered: %v", r)
			response = errorResponse(nil, InternalError, "Internal server error", nil)
			exit = false
		}
	}()
	return t.processRequest(line)
}

// processRequest returns the response to send, nil for notifications, and
// whether the loop should stop.
func (t *MCPTransport) processRequest(data []byte) (*JSONRPCResponse, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(nil, ParseError, "Parse error", err.Error()), false
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, InvalidRequest, "Invalid Request - JSON-RPC 2.0 required", nil), false
	}

	switch req.Method {
	case "initialize":
		return t.handleInitialize(req), false
	case "initialized", "notifications/initialized":
		return nil, false
	case "ping":
		return resultResponse(req.ID, map[string]interface{}{}), false
	case "shutdown":
		return t.handleShutdown(req), false
	case "exit":
		return nil, true
	case "tools/list":
		return t.handleToolsList(req), false
	case "tools/call":
		return t.handleToolCall(req), false
	default:
		return t.handleDirectMethod(req), false
	}
}

func resultResponse(id, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return MethodNotFound
	case errors.Is(err, ErrInvalidParams):
		return InvalidParams
	case errors.Is(err, ErrNotFound):
		return NotFoundError
	default:
		return InternalError
	}
}

func (t *MCPTransport) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	type InitParams struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo,omitempty"`
	}

	var params InitParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, InvalidParams, "Invalid params", err.Error())
		}
	}
	if params.ClientInfo.Name != "" {
		t.logger.Printf("MCP transport: initialize from %s %s", params.ClientInfo.Name, params.ClientInfo.Version)
	}

	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{
				"listChanged": false,
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "ddltrack",
			"version": t.version,
		},
	}

	return resultResponse(req.ID, result)
}

func (t *MCPTransport) isConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *MCPTransport) setConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

func (t *MCPTransport) handleShutdown(req JSONRPCRequest) *JSONRPCResponse {
	t.setConnected(false)
	return resultResponse(req.ID, map[string]interface{}{})
}

// handleDirectMethod calls ddl.* methods without the tools/call envelope.
func (t *MCPTransport) handleDirectMethod(req JSONRPCRequest) *JSONRPCResponse {
	if !t.isConnected() {
		return errorResponse(req.ID, InvalidRequest, "server is shutting down", nil)
	}

	result, err := t.server.HandleCommand(req.Method, req.Params)
	if err != nil {
		return errorResponse(req.ID, errorCode(err), err.Error(), nil)
	}

	return resultResponse(req.ID, result)
}

func (t *MCPTransport) handleToolsList(req JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		list = append(list, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.schema(),
		})
	}

	return resultResponse(req.ID, map[string]interface{}{"tools": list})
}

func (t *MCPTransport) handleToolCall(req JSONRPCRequest) *JSONRPCResponse {
	type ToolCallParams struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, InvalidParams, "Invalid params", err.Error())
	}

	tool, ok := toolByName(params.Name)
	if !ok {
		return errorResponse(req.ID, MethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	result, err := t.server.HandleCommand(tool.Method, params.Arguments)
	if err != nil {
		return errorResponse(req.ID, errorCode(err), err.Error(), nil)
	}

	// Markdown and iCalendar results are already text
	var textContent string
	if str, ok := result.(string); ok {
		textContent = str
	} else {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return errorResponse(req.ID, InternalError, "Failed to serialize result", err.Error())
		}
		textContent = string(resultJSON)
	}

	content := []map[string]interface{}{{"type": "text", "text": textContent}}
	return resultResponse(req.ID, map[string]interface{}{"content": content})
}

func (t *MCPTransport) sendResponse(response *JSONRPCResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	return nil
}
