package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var errCancelledByPeer = errors.New("request cancelled by peer")

// inflightCall is owned by exactly one request, so a finished request never
// removes the entry of a later request that reused its id.
type inflightCall struct {
	cancel context.CancelCauseFunc
}

// Session serves newline-delimited JSON-RPC over a reader/writer pair, such
// as stdin/stdout. Requests are handled concurrently; responses are written
// one line at a time in completion order.
type Session struct {
	handler *Handler
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	inflight map[string]*inflightCall

	wg sync.WaitGroup
}

func NewSession(handler *Handler, in io.Reader, out io.Writer) *Session {
	return &Session{
		handler:  handler,
		in:       in,
		out:      out,
		logger:   handler.logger,
		inflight: make(map[string]*inflightCall),
	}
}

// Serve reads until EOF or until ctx is done. Cancelling ctx aborts every
// in-flight call of this session. Serve waits for in-flight calls before
// returning.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, lines, readErr)

	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			s.dispatch(ctx, line)
		}
	}
}

func (s *Session) readLoop(ctx context.Context, lines chan<- []byte, readErr chan<- error) {
	defer close(lines)
	reader := bufio.NewReader(s.in)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr <- err
			}
			return
		}
	}
}

func (s *Session) dispatch(ctx context.Context, line []byte) {
	var head struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	// Malformed lines still go through the handler to get a proper error reply.
	_ = json.Unmarshal(line, &head)

	if head.Method == MethodCancelled && head.ID == nil {
		var p cancelledParams
		if err := json.Unmarshal(head.Params, &p); err == nil {
			s.cancel(p.RequestID)
		}
		return
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	call := &inflightCall{cancel: cancel}
	key := idKey(head.ID)
	if key != "" {
		s.mu.Lock()
		s.inflight[key] = call
		s.mu.Unlock()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if key != "" {
				s.mu.Lock()
				if s.inflight[key] == call {
					delete(s.inflight, key)
				}
				s.mu.Unlock()
			}
			cancel(nil)
		}()

		resp := s.handler.HandleRaw(reqCtx, line)
		if resp == nil || errors.Is(context.Cause(reqCtx), errCancelledByPeer) {
			return
		}
		s.write(resp)
	}()
}

func (s *Session) cancel(requestID json.RawMessage) {
	key := idKey(requestID)
	s.mu.Lock()
	call, ok := s.inflight[key]
	s.mu.Unlock()
	if ok {
		call.cancel(errCancelledByPeer)
		s.logger.Debug("rpc cancelled", "rpc_id", key)
	}
}

func (s *Session) write(resp *Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode rpc response", "error", err)
		return
	}
	b = append(b, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(b); err != nil {
		s.logger.Error("write rpc response", "error", err)
	}
}

// idKey canonicalizes a JSON id so that 1 and 1 with different spacing match.
func idKey(id json.RawMessage) string {
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return ""
	}
	return buf.String()
}
