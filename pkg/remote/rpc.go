package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

const rpcVersion = "2.0"

// maxLineBytes bounds a single response line from the peer.
const maxLineBytes = 4 << 20

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func encodeRequest(id int64, op string, args map[string]any) ([]byte, error) {
	req := rpcRequest{JSONRPC: rpcVersion, ID: id, Method: op, Params: args}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	return data, nil
}

// rpcConn speaks newline-delimited JSON-RPC over a byte stream pair. A
// single reader goroutine dispatches responses to pending calls by id, so
// calls may be issued concurrently and canceled independently.
type rpcConn struct {
	w       io.WriteCloser
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *rpcResponse
	readErr error

	done chan struct{}
	log  log.FieldLogger
}

func newRPCConn(w io.WriteCloser, r io.Reader, logger log.FieldLogger) *rpcConn {
	if logger == nil {
		logger = log.StandardLogger()
	}
	c := &rpcConn{
		w:       w,
		pending: make(map[int64]chan *rpcResponse),
		done:    make(chan struct{}),
		log:     logger,
	}
	go c.readLoop(r)
	return c
}

func (c *rpcConn) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			c.log.WithError(err).Debug("discarding unparseable line from remote")
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	c.mu.Lock()
	c.readErr = err
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	c.mu.Unlock()
	close(c.done)
}

func (c *rpcConn) invoke(ctx context.Context, op string, args map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.readErr != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, c.readErr)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *rpcResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := encodeRequest(id, op, args)
	if err != nil {
		c.forget(id)
		return nil, err
	}
	payload = append(payload, '\n')

	c.writeMu.Lock()
	_, err = c.w.Write(payload)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write %s request: %w", op, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", op, resp.Error)
		}
		if len(resp.Result) == 0 {
			return nil, fmt.Errorf("%s: empty result", op)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *rpcConn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// close shuts the write side; the read loop finishes when the peer closes
// its end of the stream.
func (c *rpcConn) close() error {
	return c.w.Close()
}
