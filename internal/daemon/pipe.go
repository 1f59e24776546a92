package daemon

import (
	"context"
	"time"

	"github.com/diogocavaiar/session-android/internal/status"
	"github.com/diogocavaiar/session-android/internal/transport"
	"go.uber.org/zap"
)

const (
	minRedialDelay = time.Second
	maxRedialDelay = 30 * time.Second
)

type dialFunc func(ctx context.Context, url string, logger *zap.Logger) (*transport.Pipe, error)

// PipeKeeper keeps the gateway pipe installed in the transport switch and
// redials it when it drops. Without a pipe URL messages go straight to the
// storage nodes.
type PipeKeeper struct {
	url      string
	sw       *transport.Switch
	machine  *status.Machine
	dial     dialFunc
	minDelay time.Duration
	maxDelay time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPipeKeeper returns a keeper for url. An empty url keeps the switch on
// its direct transport.
func NewPipeKeeper(url string, sw *transport.Switch, machine *status.Machine, logger *zap.Logger) *PipeKeeper {
	return &PipeKeeper{
		url:      url,
		sw:       sw,
		machine:  machine,
		dial:     transport.DialPipe,
		minDelay: minRedialDelay,
		maxDelay: maxRedialDelay,
		logger:   logger,
	}
}

// Start begins connecting in the background.
func (k *PipeKeeper) Start(ctx context.Context) {
	ctx, k.cancel = context.WithCancel(ctx)
	k.done = make(chan struct{})
	go k.run(ctx)
}

// Stop closes the pipe and waits for the keeper to exit.
func (k *PipeKeeper) Stop() {
	if k.cancel != nil {
		k.cancel()
		<-k.done
	}
}

func (k *PipeKeeper) run(ctx context.Context) {
	defer close(k.done)

	if k.url == "" {
		k.logger.Info("no pipe configured, sending directly to storage nodes")
		k.transition(status.Direct)
		return
	}

	k.transition(status.Connecting)
	delay := k.minDelay
	for {
		p, err := k.dial(ctx, k.url, k.logger)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			k.logger.Warn("pipe dial failed", zap.String("url", k.url), zap.Error(err), zap.Duration("retry_in", delay))
			k.transition(status.Degraded)
			if !sleep(ctx, delay) {
				return
			}
			delay = min(delay*2, k.maxDelay)
			k.transition(status.Connecting)
			continue
		}

		delay = k.minDelay
		k.sw.SetPipe(p)
		k.transition(status.Ready)
		k.logger.Info("pipe connected", zap.String("url", k.url))

		select {
		case <-p.Done():
			k.sw.SetPipe(nil)
			k.logger.Warn("pipe dropped, reconnecting")
			k.transition(status.Reconnecting)
			k.transition(status.Connecting)
		case <-ctx.Done():
			k.sw.SetPipe(nil)
			_ = p.Close()
			return
		}
	}
}

func (k *PipeKeeper) transition(to status.State) {
	if err := k.machine.Transition(to); err != nil {
		k.logger.Debug("status transition skipped", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
