package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"sync"
)

// Message represents a JSON-RPC 2.0 message (request, response, or notification).
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`     // nil for notifications
	Method  string          `json:"method,omitempty"` // present for requests/notifications
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError represents a JSON-RPC 2.0 error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Conn speaks JSON-RPC 2.0 with Content-Length header framing over an
// io.ReadWriteCloser, typically the stdin/stdout pair of a language-server
// process. Writes are serialized; reads are single-consumer.
type Conn struct {
	rwc io.ReadWriteCloser
	tp  *textproto.Reader
	wmu sync.Mutex
}

// NewConn wraps the given stream in a JSON-RPC connection.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc: rwc,
		tp:  textproto.NewReader(bufio.NewReaderSize(rwc, 64*1024)),
	}
}

// Call sends a request with the given id, method, and params.
func (c *Conn) Call(id int, method string, params any) error {
	return c.write(Message{JSONRPC: "2.0", ID: &id, Method: method}, params)
}

// Notify sends a notification (no id, no response expected).
func (c *Conn) Notify(method string, params any) error {
	return c.write(Message{JSONRPC: "2.0", Method: method}, params)
}

// Read blocks until a full message is available or the connection is closed.
func (c *Conn) Read() (*Message, error) {
	header, err := c.tp.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	length, err := strconv.Atoi(header.Get("Content-Length"))
	if err != nil {
		return nil, fmt.Errorf("parse Content-Length %q: %w", header.Get("Content-Length"), err)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.tp.R, body); err != nil {
		return nil, fmt.Errorf("read body (%d bytes): %w", length, err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.rwc.Close()
}

func (c *Conn) write(msg Message, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	msg.Params = raw

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := fmt.Fprintf(c.rwc, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.rwc.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}
