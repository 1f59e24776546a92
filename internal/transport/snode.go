// Package transport carries messages and attachments over the network:
// storage nodes over HTTP JSON-RPC, the websocket message pipe, file
// servers and public channel servers.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/swarm"
	"go.uber.org/zap"
)

const (
	storageRPCPath = "/storage_rpc/v1"
	requestTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

type rpcRequest struct {
	Method string      `json:"method"`
	Params storeParams `json:"params"`
}

type storeParams struct {
	PubKey    string `json:"pubKey"`
	TTL       string `json:"ttl"`
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

func newStoreParams(info delivery.MessageInfo) storeParams {
	return storeParams{
		PubKey:    info.Recipient,
		TTL:       strconv.FormatInt(info.TTL.Milliseconds(), 10),
		Timestamp: strconv.FormatUint(info.Timestamp, 10),
		Data:      base64.StdEncoding.EncodeToString(envelope.WrapForStorage(info)),
	}
}

// SnodeClient stores messages on a fixed set of storage nodes over HTTP.
type SnodeClient struct {
	client *http.Client
	nodes  []string
	logger *zap.Logger
}

// NewSnodeClient returns a client for the given node base URLs.
func NewSnodeClient(client *http.Client, nodes []string, logger *zap.Logger) *SnodeClient {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnodeClient{client: client, nodes: nodes, logger: logger}
}

// Submit starts one store request per node and returns their operations.
func (c *SnodeClient) Submit(ctx context.Context, info delivery.MessageInfo) ([]swarm.Operation, error) {
	if len(c.nodes) == 0 {
		return nil, &delivery.NetworkError{Err: errors.New("no storage nodes configured")}
	}
	body, err := json.Marshal(rpcRequest{Method: "store", Params: newStoreParams(info)})
	if err != nil {
		return nil, fmt.Errorf("encode store request: %w", err)
	}

	// Operations outlive the dispatch that waits on the first success.
	ctx = context.WithoutCancel(ctx)
	ops := make([]swarm.Operation, 0, len(c.nodes))
	for _, node := range c.nodes {
		op := make(chan swarm.Result, 1)
		ops = append(ops, op)
		go func() {
			payload, err := c.store(ctx, node, body)
			if err != nil {
				c.logger.Debug("store failed", zap.String("node", node), zap.Error(err))
			}
			op <- swarm.Result{Payload: payload, Err: err}
		}()
	}
	return ops, nil
}

func (c *SnodeClient) store(ctx context.Context, node string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := strings.TrimSuffix(node, "/") + storageRPCPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &delivery.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &delivery.NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &delivery.NodeError{Code: resp.StatusCode, Detail: string(payload)}
	}
	return payload, nil
}
