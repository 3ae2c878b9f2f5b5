package bip32

// KeyPath enumerates the fixed child indices an account derives its
// three chains from: receiving addresses, change addresses, and
// per-channel signing keys. See spec.md §3 "KeyPath constants".
type KeyPath uint32

const (
	// RECEIVE is the chain index for addresses shown to other people.
	RECEIVE KeyPath = 0
	// CHANGE is the chain index for addresses used internally for
	// transaction change outputs.
	CHANGE KeyPath = 1
	// CHANNEL is the chain index channel signing keys live under:
	// account_private_key / CHANNEL / n.
	CHANNEL KeyPath = 2
)

func (p KeyPath) String() string {
	switch p {
	case RECEIVE:
		return "receive"
	case CHANGE:
		return "change"
	case CHANNEL:
		return "channel"
	default:
		return "unknown"
	}
}
