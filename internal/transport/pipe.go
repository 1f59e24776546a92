package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/swarm"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrPipeClosed is reported for submissions pending when the pipe closes.
	ErrPipeClosed = errors.New("message pipe closed")
	// ErrPipeTimeout is reported for submissions the gateway never answered.
	ErrPipeTimeout = errors.New("message pipe request timed out")
)

type pendingOp struct {
	result chan swarm.Result
	timer  *time.Timer
}

type pipeRequest struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params storeParams `json:"params"`
}

type pipeResponse struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Pipe is a websocket connection to a gateway that relays store requests to
// the recipient's swarm. Responses are matched to requests by id.
type Pipe struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	// requestTimeout bounds how long a request waits for its response.
	requestTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingOp
	closed  bool
	done    chan struct{}
}

// DialPipe connects to the gateway at url and starts the read loop.
func DialPipe(ctx context.Context, url string, logger *zap.Logger) (*Pipe, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial pipe: %w", err)
	}
	p := &Pipe{
		conn:           conn,
		logger:         logger,
		requestTimeout: swarm.DefaultTimeout,
		pending:        make(map[string]*pendingOp),
		done:           make(chan struct{}),
	}
	go p.readLoop()
	return p, nil
}

// Submit sends one store request and returns its single operation.
func (p *Pipe) Submit(_ context.Context, info delivery.MessageInfo) ([]swarm.Operation, error) {
	req := pipeRequest{ID: uuid.NewString(), Method: "store", Params: newStoreParams(info)}
	op := &pendingOp{result: make(chan swarm.Result, 1)}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &delivery.NetworkError{Err: ErrPipeClosed}
	}
	p.pending[req.ID] = op
	op.timer = time.AfterFunc(p.requestTimeout, func() {
		if op := p.take(req.ID); op != nil {
			op.result <- swarm.Result{Err: &delivery.NetworkError{Err: ErrPipeTimeout}}
		}
	})
	p.mu.Unlock()

	p.writeMu.Lock()
	err := p.conn.WriteJSON(req)
	p.writeMu.Unlock()
	if err != nil {
		p.take(req.ID)
		return nil, &delivery.NetworkError{Err: err}
	}
	return []swarm.Operation{op.result}, nil
}

// Done is closed once the pipe stopped reading.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}

// Close closes the connection and fails pending submissions.
func (p *Pipe) Close() error {
	err := p.conn.Close()
	<-p.done
	return err
}

// take removes the pending request id. Only the first caller gets it.
func (p *Pipe) take(id string) *pendingOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.pending[id]
	if !ok {
		return nil
	}
	delete(p.pending, id)
	op.timer.Stop()
	return op
}

func (p *Pipe) pendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pipe) readLoop() {
	defer p.shutdown()
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.logger.Info("message pipe closed", zap.Error(err))
			return
		}
		var resp pipeResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			p.logger.Warn("malformed pipe response", zap.Error(err))
			continue
		}
		op := p.take(resp.ID)
		if op == nil {
			continue
		}
		if resp.Status == http.StatusOK {
			op.result <- swarm.Result{Payload: []byte(resp.Body)}
		} else {
			op.result <- swarm.Result{Err: &delivery.NodeError{Code: resp.Status, Detail: resp.Body}}
		}
	}
}

func (p *Pipe) shutdown() {
	p.mu.Lock()
	p.closed = true
	pending := p.pending
	p.pending = make(map[string]*pendingOp)
	p.mu.Unlock()

	for _, op := range pending {
		op.timer.Stop()
		op.result <- swarm.Result{Err: &delivery.NetworkError{Err: ErrPipeClosed}}
	}
	close(p.done)
}
