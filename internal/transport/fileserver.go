package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diogocavaiar/session-android/internal/attachment"
)

type idResponse struct {
	Data struct {
		ID  json.Number `json:"id"`
		URL string      `json:"url"`
	} `json:"data"`
}

// FileServer uploads attachment bodies to file servers.
type FileServer struct {
	client *http.Client
}

// NewFileServer returns a file server client.
func NewFileServer(client *http.Client) *FileServer {
	if client == nil {
		client = http.DefaultClient
	}
	return &FileServer{client: client}
}

// Upload posts body to {server}/files with an exact content length.
func (f *FileServer) Upload(ctx context.Context, server string, body io.Reader, length int64, contentType string) (attachment.UploadResult, error) {
	url := strings.TrimSuffix(server, "/") + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return attachment.UploadResult{}, err
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", "application/octet-stream")
	if contentType != "" {
		req.Header.Set("X-Content-Type", contentType)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return attachment.UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	var out idResponse
	if err := decodeResponse(resp, &out); err != nil {
		return attachment.UploadResult{}, err
	}
	id, err := parseID(out.Data.ID)
	if err != nil {
		return attachment.UploadResult{}, err
	}
	return attachment.UploadResult{ID: uint64(id), URL: out.Data.URL}, nil
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseID(n json.Number) (int64, error) {
	if n == "" {
		return 0, fmt.Errorf("response has no id")
	}
	id, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("response id %q: %w", n, err)
	}
	return id, nil
}
