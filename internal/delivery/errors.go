package delivery

import (
	"errors"
	"fmt"

	"github.com/diogocavaiar/session-android/internal/message"
)

// EncodingError reports a message that cannot be represented on the wire.
// It is a programming error and is never converted into a Result.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return "encoding: " + e.Reason
}

// Encodingf returns a new *EncodingError.
func Encodingf(format string, args ...any) error {
	return &EncodingError{Reason: fmt.Sprintf(format, args...)}
}

// UnregisteredUserError is returned by collaborators that know of no
// endpoint for a recipient.
type UnregisteredUserError struct {
	PublicKey string
}

func (e *UnregisteredUserError) Error() string {
	return fmt.Sprintf("unregistered user %s", e.PublicKey)
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UntrustedIdentityError is returned by the session cipher when the stored
// identity of a recipient does not match the one presented.
type UntrustedIdentityError struct {
	PublicKey   string
	IdentityKey []byte
}

func (e *UntrustedIdentityError) Error() string {
	return fmt.Sprintf("untrusted identity for %s", e.PublicKey)
}

// NodeError is an error reported by a storage node. Code is the node's
// status code and Detail its response body, both kept verbatim.
type NodeError struct {
	Code   int
	Detail string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("storage node error %d: %s", e.Code, e.Detail)
}

// FromError converts a collaborator error into the matching result.
// Anything unrecognised becomes a network failure.
func FromError(r message.Recipient, err error) Result {
	var (
		nodeErr      *NodeError
		identityErr  *UntrustedIdentityError
		unregistered *UnregisteredUserError
	)
	switch {
	case errors.As(err, &nodeErr):
		return NodeFailed(r, nodeErr)
	case errors.As(err, &identityErr):
		return IdentityMismatch(r, identityErr.IdentityKey)
	case errors.As(err, &unregistered):
		return Unregistered(r)
	default:
		return NetworkFailed(r)
	}
}
