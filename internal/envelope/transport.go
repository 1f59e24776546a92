package envelope

import (
	"errors"

	"github.com/diogocavaiar/session-android/internal/delivery"
)

const transportBlockSize = 160

// PadForTransport pads plaintext content before encryption: a 0x80
// terminator followed by zeros up to one byte short of a multiple of 160.
func PadForTransport(content []byte) []byte {
	parts := (len(content) + 2 + transportBlockSize - 1) / transportBlockSize
	padded := make([]byte, parts*transportBlockSize-1)
	copy(padded, content)
	padded[len(content)] = 0x80
	return padded
}

// UnpadTransport strips the transport padding added by PadForTransport.
func UnpadTransport(padded []byte) ([]byte, error) {
	for i := len(padded) - 1; i >= 0; i-- {
		switch padded[i] {
		case 0x00:
			continue
		case 0x80:
			return padded[:i], nil
		default:
			return nil, errors.New("invalid transport padding")
		}
	}
	return nil, errors.New("missing transport padding terminator")
}

// WrapForStorage encodes an encrypted message as the envelope a storage
// node keeps, inside the request wrapper receivers poll for.
func WrapForStorage(info delivery.MessageInfo) []byte {
	var env writer
	env.varint(envelopeType, uint64(info.Type))
	env.str(envelopeSource, info.SenderID)
	env.varint(envelopeTimestamp, info.Timestamp)
	env.varint(envelopeSourceDevice, uint64(info.SenderDevice))
	env.bytes(envelopeContent, info.Content)

	var req writer
	req.str(wsRequestVerb, "PUT")
	req.str(wsRequestPath, "/api/v1/message")
	req.bytes(wsRequestBody, env.b)

	var w writer
	w.varint(wsMessageType, wsTypeRequest)
	w.bytes(wsMessageRequest, req.b)
	return w.b
}
