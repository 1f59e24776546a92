package sender

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedSync is returned for a sync message without a variant.
var ErrUnsupportedSync = errors.New("unsupported sync message")

// SyncPolicy decides which messages are replicated to linked devices.
type SyncPolicy interface {
	IsSyncable(c message.Content) bool
}

// SyncPolicyFunc adapts a function to SyncPolicy.
type SyncPolicyFunc func(c message.Content) bool

// IsSyncable calls f(c).
func (f SyncPolicyFunc) IsSyncable(c message.Content) bool {
	return f(c)
}

// DefaultSyncPolicy syncs data messages except session resets and device
// unlinking requests.
var DefaultSyncPolicy SyncPolicy = SyncPolicyFunc(func(c message.Content) bool {
	m, ok := c.(*message.DataMessage)
	return ok && !m.EndSession && !m.DeviceUnlink
})

// SendSyncMessage sends sync to every linked device over the private path.
// Verification messages are dropped without error.
func (s *Sender) SendSyncMessage(ctx context.Context, sync message.SyncMessage) ([]delivery.Result, error) {
	timestamp := uint64(s.now().UnixMilli())
	switch m := sync.(type) {
	case nil:
		return nil, ErrUnsupportedSync
	case *message.SyncVerified:
		return nil, nil
	case *message.SyncSent:
		if m == nil {
			return nil, ErrUnsupportedSync
		}
		timestamp = m.Timestamp
	}

	content, err := s.Builder.Build(sync)
	if err != nil {
		return nil, fmt.Errorf("build sync message: %w", err)
	}
	return s.fanOut(ctx, sync, content, timestamp, nil)
}

// syncTranscript replicates a sent message to the linked devices.
func (s *Sender) syncTranscript(ctx context.Context, content []byte, destination *string, timestamp uint64, results []delivery.Result, ttl *time.Duration) ([]delivery.Result, error) {
	transcript, err := s.Builder.BuildSentTranscript(content, destination, timestamp, results)
	if err != nil {
		return nil, fmt.Errorf("build sent transcript: %w", err)
	}
	sent := &message.SyncSent{Destination: destination, Timestamp: timestamp}
	synced, err := s.fanOut(ctx, sent, transcript, timestamp, ttl)
	if err != nil {
		s.logger.Warn("sent transcript not synced", zap.Uint64("timestamp", timestamp), zap.Error(err))
		return nil, nil
	}
	return synced, nil
}

// fanOut dispatches content once per linked device. The device list is read
// once and used as a snapshot. Device sends are independent: a failure is a
// result and does not affect the other devices. Only a failed device lookup
// returns an error.
func (s *Sender) fanOut(ctx context.Context, c message.Content, content []byte, timestamp uint64, ttl *time.Duration) ([]delivery.Result, error) {
	listed, err := s.Devices.LinkedDevices(ctx, s.localKey)
	if err != nil {
		return nil, fmt.Errorf("list linked devices: %w", err)
	}
	devices := slices.Clone(listed)
	if len(devices) == 0 {
		return nil, nil
	}

	results := make([]delivery.Result, len(devices))
	var g errgroup.Group
	g.SetLimit(s.syncLimit)
	for i, device := range devices {
		g.Go(func() error {
			r := message.Recipient{PublicKey: device, LinkedDevice: true}
			results[i], _ = s.dispatch(ctx, r, c, content, dispatchParams{
				timestamp:   timestamp,
				ttl:         ttl,
				privateOnly: true,
			})
			if !results[i].IsSuccess() {
				s.logger.Warn("sync to linked device failed",
					zap.String("recipient", device),
					zap.String("result", results[i].Kind()))
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Debug("sync fan-out done", zap.Int("devices", len(devices)), zap.Uint64("timestamp", timestamp))
	return results, nil
}
