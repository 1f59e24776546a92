package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
	"github.com/diogocavaiar/session-android/internal/publicchat"
	"github.com/diogocavaiar/session-android/internal/swarm"
	"github.com/gorilla/websocket"
)

func testInfo() delivery.MessageInfo {
	return delivery.MessageInfo{
		Type:      delivery.EnvelopeUnidentifiedSender,
		Timestamp: 1000,
		Content:   []byte("ciphertext"),
		Recipient: "05bob",
		TTL:       48 * time.Hour,
	}
}

func wait(t *testing.T, op swarm.Operation) swarm.Result {
	t.Helper()
	select {
	case res := <-op:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not complete")
		return swarm.Result{}
	}
}

func TestSnodeSubmit(t *testing.T) {
	var got rpcRequest
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != storageRPCPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"difficulty":1}`))
	}))
	defer ok.Close()
	misdirected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(421)
		_, _ = w.Write([]byte("wrong swarm"))
	}))
	defer misdirected.Close()

	c := NewSnodeClient(nil, []string{ok.URL, misdirected.URL}, nil)
	ops, err := c.Submit(context.Background(), testInfo())
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("ops = %d, want one per node", len(ops))
	}

	first := wait(t, ops[0])
	if first.Err != nil || string(first.Payload) != `{"difficulty":1}` {
		t.Errorf("first = %+v", first)
	}
	second := wait(t, ops[1])
	var nodeErr *delivery.NodeError
	if !errors.As(second.Err, &nodeErr) || nodeErr.Code != 421 || nodeErr.Detail != "wrong swarm" {
		t.Errorf("second err = %v, want node error 421", second.Err)
	}

	if got.Method != "store" || got.Params.PubKey != "05bob" || got.Params.TTL != "172800000" || got.Params.Timestamp != "1000" {
		t.Errorf("request = %+v", got)
	}
	if _, err := base64.StdEncoding.DecodeString(got.Params.Data); err != nil {
		t.Errorf("data is not base64: %v", err)
	}
}

func TestSnodeSubmitWithoutNodes(t *testing.T) {
	_, err := NewSnodeClient(nil, nil, nil).Submit(context.Background(), testInfo())
	var netErr *delivery.NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("err = %v, want NetworkError", err)
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) Submit(context.Context, delivery.MessageInfo) ([]swarm.Operation, error) {
	c.calls++
	return nil, nil
}

func pipeServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var req pipeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if err := conn.WriteJSON(pipeResponse{ID: req.ID, Status: status, Body: req.Params.PubKey}); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestPipeSubmit(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"stored", http.StatusOK, false},
		{"rejected", 406, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := pipeServer(t, tt.status)
			defer srv.Close()

			p, err := DialPipe(context.Background(), wsURL(srv), nil)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			ops, err := p.Submit(context.Background(), testInfo())
			if err != nil {
				t.Fatal(err)
			}
			res := wait(t, ops[0])
			if (res.Err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", res.Err, tt.wantErr)
			}
			if tt.wantErr {
				var nodeErr *delivery.NodeError
				if !errors.As(res.Err, &nodeErr) || nodeErr.Code != tt.status {
					t.Errorf("err = %v, want node error %d", res.Err, tt.status)
				}
			} else if string(res.Payload) != "05bob" {
				t.Errorf("payload = %q", res.Payload)
			}
		})
	}
}

func TestPipeCloseFailsPending(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req pipeRequest
		_ = conn.ReadJSON(&req)
	}))
	defer srv.Close()

	p, err := DialPipe(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := p.Submit(context.Background(), testInfo())
	if err != nil {
		t.Fatal(err)
	}
	res := wait(t, ops[0])
	if !errors.Is(res.Err, ErrPipeClosed) {
		t.Errorf("err = %v, want ErrPipeClosed", res.Err)
	}
	<-p.Done()
	if _, err := p.Submit(context.Background(), testInfo()); !errors.Is(err, ErrPipeClosed) {
		t.Errorf("submit after close: err = %v, want ErrPipeClosed", err)
	}
}

func TestPipeUnansweredRequestTimesOut(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p, err := DialPipe(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.requestTimeout = 50 * time.Millisecond

	ops, err := p.Submit(context.Background(), testInfo())
	if err != nil {
		t.Fatal(err)
	}
	res := wait(t, ops[0])
	if !errors.Is(res.Err, ErrPipeTimeout) {
		t.Errorf("err = %v, want ErrPipeTimeout", res.Err)
	}
	if n := p.pendingCount(); n != 0 {
		t.Errorf("pending = %d after timeout, want 0", n)
	}
}

func TestPipeAnsweredRequestLeavesNothingPending(t *testing.T) {
	srv := pipeServer(t, http.StatusOK)
	defer srv.Close()

	p, err := DialPipe(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for range 3 {
		ops, err := p.Submit(context.Background(), testInfo())
		if err != nil {
			t.Fatal(err)
		}
		if res := wait(t, ops[0]); res.Err != nil {
			t.Fatal(res.Err)
		}
	}
	if n := p.pendingCount(); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestSwitchSwapsPipe(t *testing.T) {
	fallback := &countingTransport{}
	s := NewSwitch(fallback)

	if _, err := s.Submit(context.Background(), testInfo()); err != nil {
		t.Fatal(err)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls)
	}

	srv := pipeServer(t, http.StatusOK)
	defer srv.Close()
	p, err := DialPipe(context.Background(), wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if old := s.SetPipe(p); old != nil {
		t.Errorf("previous pipe = %v, want nil", old)
	}
	ops, err := s.Submit(context.Background(), testInfo())
	if err != nil {
		t.Fatal(err)
	}
	if res := wait(t, ops[0]); res.Err != nil {
		t.Errorf("pipe submit: %v", res.Err)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback used while a pipe is set")
	}

	if old := s.SetPipe(nil); old != p {
		t.Error("SetPipe(nil) did not return the installed pipe")
	}
	if s.Pipe() != nil {
		t.Error("pipe still set")
	}
}

func TestFileServerUpload(t *testing.T) {
	var (
		gotLength int64
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		gotLength = r.ContentLength
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data":{"id":77,"url":"https://files.example/f/77"}}`))
	}))
	defer srv.Close()

	body := []byte("encrypted bytes")
	res, err := NewFileServer(nil).Upload(context.Background(), srv.URL, bytes.NewReader(body), int64(len(body)), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != 77 || res.URL != "https://files.example/f/77" {
		t.Errorf("result = %+v", res)
	}
	if gotLength != int64(len(body)) || !bytes.Equal(gotBody, body) {
		t.Errorf("server got %d declared, %q", gotLength, gotBody)
	}
}

func TestFileServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	_, err := NewFileServer(nil).Upload(context.Background(), srv.URL, strings.NewReader("x"), 1, "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestChannelPost(t *testing.T) {
	var got channelPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		_, _ = w.Write([]byte(`{"data":{"id":"555"}}`))
	}))
	defer srv.Close()

	post := publicchat.Post{
		SenderPublicKey: "05local",
		Body:            "2000",
		Timestamp:       2000,
		Quote:           &publicchat.Quote{ID: 1, Author: "05a", Text: "q", ServerID: 9},
		Attachments:     []publicchat.Attachment{{Kind: publicchat.KindLinkPreview, ID: 3, URL: "https://x"}},
	}
	id, err := NewChannelPoster(nil).Post(context.Background(), message.PublicChat{Server: srv.URL, Channel: 1}, post)
	if err != nil {
		t.Fatal(err)
	}
	if id != 555 {
		t.Errorf("id = %d, want 555", id)
	}
	if got.Text != "2000" {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Annotations) != 2 || got.Annotations[0].Type != annotationPublicChat || got.Annotations[1].Type != annotationOEmbed {
		t.Errorf("annotations = %+v", got.Annotations)
	}
}
