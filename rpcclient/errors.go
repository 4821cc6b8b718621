package rpcclient

import "fmt"

// Kind taxonomies the ways a call to the node can fail. The Block
// Assembler treats all of them identically (the block is reported
// missing and retried on the next reconciliation pass), but the Kind is
// preserved for logging.
type Kind int

const (
	KindTransport Kind = iota
	KindDecode
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// NodeError wraps every failure mode the Node Client can surface.
type NodeError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("rpcclient: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func transportErr(op string, err error) error {
	return &NodeError{Kind: KindTransport, Op: op, Err: err}
}

func decodeErr(op string, err error) error {
	return &NodeError{Kind: KindDecode, Op: op, Err: err}
}

func notFoundErr(op string) error {
	return &NodeError{Kind: KindNotFound, Op: op, Err: fmt.Errorf("not found")}
}
