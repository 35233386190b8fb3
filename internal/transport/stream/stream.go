// Package stream implements the line-delimited stdio transport (C14):
// newline-terminated JSON-RPC-style frames read from an input stream and
// written to an output stream, with all diagnostic output routed elsewhere
// (§6 "the output stream is reserved for protocol frames"). Grounded on the
// teacher's graceful-shutdown shape (cmd/service/main.go's signal-driven
// drain) generalised from an HTTP server's Shutdown() to a read-loop that
// stops accepting new lines and waits for in-flight handling to finish.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/transport"
)

// DefaultDrainGrace is how long Run waits for an in-flight line to finish
// handling once ctx is cancelled, before closing anyway (§4.12).
const DefaultDrainGrace = 5 * time.Second

// Transport reads one JSON-RPC frame per line from In and writes one
// response frame per line to Out. A single Session is shared for the
// process lifetime — unlike the HTTP transport, stdio has exactly one
// logical client so there is no cross-client id-collision risk to isolate
// against (§4.12's stateless-session requirement is HTTP-specific).
type Transport struct {
	Session    *transport.Session
	In         io.Reader
	Out        io.Writer
	Logger     *zap.Logger
	DrainGrace time.Duration
}

// Run reads lines from In until ctx is cancelled, EOF, or a read error,
// dispatching each to the Session and writing back one response line.
// In-flight handling is allowed to finish within DrainGrace before Run
// returns, satisfying "stop accepting new work, drain in-flight calls
// within a short grace period, close the stream" (§4.12).
func (t *Transport) Run(ctx context.Context) error {
	grace := t.DrainGrace
	if grace <= 0 {
		grace = DefaultDrainGrace
	}

	scanner := bufio.NewScanner(t.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var wg sync.WaitGroup
	var writeMu sync.Mutex

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

readLoop:
	for {
		select {
		case <-ctx.Done():
			break readLoop
		case line, ok := <-lines:
			if !ok {
				break readLoop
			}
			if len(line) == 0 {
				continue
			}
			wg.Add(1)
			go func(line []byte) {
				defer wg.Done()
				t.handleLine(ctx, line, &writeMu)
			}(line)
		}
	}

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(grace):
		if t.Logger != nil {
			t.Logger.Warn("stream transport drain grace period elapsed with calls still in flight")
		}
	}

	select {
	case err := <-scanErr:
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	default:
	}
	return nil
}

func (t *Transport) handleLine(ctx context.Context, line []byte, writeMu *sync.Mutex) {
	var req transport.Request
	if err := json.Unmarshal(line, &req); err != nil {
		t.writeResponse(writeMu, transport.Response{
			JSONRPC: "2.0",
			Error:   &transport.RPCError{Code: -32700, Message: "parse error"},
		})
		return
	}
	resp := t.Session.Handle(ctx, req)
	t.writeResponse(writeMu, resp)
}

func (t *Transport) writeResponse(writeMu *sync.Mutex, resp transport.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Error("stream transport: marshal response", zap.Error(err))
		}
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	if _, err := t.Out.Write(append(data, '\n')); err != nil && t.Logger != nil {
		t.Logger.Error("stream transport: write response", zap.Error(err))
	}
}
