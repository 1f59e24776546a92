package envelope

import (
	"bytes"
	"testing"

	"github.com/diogocavaiar/session-android/internal/delivery"
)

func TestPadForTransport(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 159},
		{1, 159},
		{157, 159},
		{158, 159},
		{159, 319},
		{400, 479},
	}
	for _, tt := range tests {
		content := bytes.Repeat([]byte{1}, tt.n)
		padded := PadForTransport(content)
		if len(padded) != tt.want {
			t.Errorf("len(PadForTransport(%d bytes)) = %d, want %d", tt.n, len(padded), tt.want)
		}
		unpadded, err := UnpadTransport(padded)
		if err != nil {
			t.Fatalf("UnpadTransport: %v", err)
		}
		if !bytes.Equal(unpadded, content) {
			t.Errorf("unpadded %d bytes, want original %d", len(unpadded), tt.n)
		}
	}
}

func TestWrapForStorage(t *testing.T) {
	wrapped := WrapForStorage(delivery.MessageInfo{
		Type:      delivery.EnvelopeUnidentifiedSender,
		Timestamp: 1000,
		Content:   []byte("ciphertext"),
		Recipient: "05aa",
	})

	var request []byte
	for _, f := range mustFields(t, wrapped) {
		if f.num == wsMessageRequest {
			request = f.b
		}
	}
	var body []byte
	for _, f := range mustFields(t, request) {
		if f.num == wsRequestBody {
			body = f.b
		}
	}
	nums := make(map[int]uint64)
	var content []byte
	for _, f := range mustFields(t, body) {
		nums[int(f.num)] = f.v
		if f.num == envelopeContent {
			content = f.b
		}
	}
	if nums[int(envelopeType)] != uint64(delivery.EnvelopeUnidentifiedSender) {
		t.Errorf("envelope type = %d", nums[int(envelopeType)])
	}
	if nums[int(envelopeTimestamp)] != 1000 {
		t.Errorf("timestamp = %d", nums[int(envelopeTimestamp)])
	}
	if string(content) != "ciphertext" {
		t.Errorf("content = %q", content)
	}
}
