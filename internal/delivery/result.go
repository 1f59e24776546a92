// Package delivery holds per-recipient send outcomes, the typed errors that
// dispatchers convert into them, and the side effects a dispatch requests.
package delivery

import (
	"github.com/diogocavaiar/session-android/internal/message"
)

// Outcome is exactly one of *Success, *NetworkFailure,
// *UnregisteredFailure, *IdentityFailure or *NodeError.
type Outcome interface {
	isOutcome()
}

// Success reports a delivered message.
type Success struct {
	Unidentified bool
	NeedsSync    bool
}

// NetworkFailure reports a transport failure, a timeout or a submission
// that failed on every storage node.
type NetworkFailure struct{}

// UnregisteredFailure reports a recipient without any known endpoint.
type UnregisteredFailure struct{}

// IdentityFailure reports an identity key mismatch. IdentityKey is the
// unexpected key, kept for trust decisions by the caller.
type IdentityFailure struct {
	IdentityKey []byte
}

func (*Success) isOutcome()             {}
func (*NetworkFailure) isOutcome()      {}
func (*UnregisteredFailure) isOutcome() {}
func (*IdentityFailure) isOutcome()     {}
func (*NodeError) isOutcome()           {}

// Result is the outcome of one send attempt to one recipient. Results are
// created once and never mutated.
type Result struct {
	Recipient message.Recipient
	Outcome   Outcome
}

// Succeeded returns a success result.
func Succeeded(r message.Recipient, unidentified, needsSync bool) Result {
	return Result{Recipient: r, Outcome: &Success{Unidentified: unidentified, NeedsSync: needsSync}}
}

// NetworkFailed returns a network failure result.
func NetworkFailed(r message.Recipient) Result {
	return Result{Recipient: r, Outcome: &NetworkFailure{}}
}

// Unregistered returns an unregistered-recipient result.
func Unregistered(r message.Recipient) Result {
	return Result{Recipient: r, Outcome: &UnregisteredFailure{}}
}

// IdentityMismatch returns an identity failure result.
func IdentityMismatch(r message.Recipient, identityKey []byte) Result {
	return Result{Recipient: r, Outcome: &IdentityFailure{IdentityKey: identityKey}}
}

// NodeFailed returns a result carrying a storage-node error verbatim.
func NodeFailed(r message.Recipient, nodeErr *NodeError) Result {
	return Result{Recipient: r, Outcome: nodeErr}
}

// Success returns the success variant, if set.
func (r Result) Success() (*Success, bool) {
	s, ok := r.Outcome.(*Success)
	return s, ok
}

// IsSuccess reports whether the send succeeded.
func (r Result) IsSuccess() bool {
	_, ok := r.Success()
	return ok
}

// NeedsSync reports whether a successful send asks for sync fan-out.
func (r Result) NeedsSync() bool {
	s, ok := r.Success()
	return ok && s.NeedsSync
}

// Kind returns a stable name for the outcome variant.
func (r Result) Kind() string {
	switch r.Outcome.(type) {
	case *Success:
		return "success"
	case *NetworkFailure:
		return "network_failure"
	case *UnregisteredFailure:
		return "unregistered"
	case *IdentityFailure:
		return "identity_mismatch"
	case *NodeError:
		return "node_error"
	default:
		panic("delivery: result without outcome")
	}
}

// AnyNeedsSync reports whether at least one result asks for sync fan-out.
func AnyNeedsSync(results []Result) bool {
	for _, r := range results {
		if r.NeedsSync() {
			return true
		}
	}
	return false
}
