package actor

import "sync/atomic"

// MessageID packs a monotonically increasing sequence number together with
// three bookkeeping bits used by the request/response (Ask) protocol:
//
//	bit 63    high-priority flag
//	bit 62    request flag (this id expects a reply)
//	bit 61    answered flag (set once the reply has been sent/consumed)
//	bits 0-60 sequence number
//
// A MessageID with the request bit clear is an ordinary Tell and never
// carries a response.
type MessageID uint64

const (
	highPriorityBit = uint64(1) << 63
	requestBit      = uint64(1) << 62
	answeredBit     = uint64(1) << 61
	sequenceMask    = answeredBit - 1
)

var sequenceCounter atomic.Uint64

// NewMessageID allocates a fresh, unanswered message id with the given
// request/priority bits set.
func NewMessageID(isRequest, highPriority bool) MessageID {
	seq := sequenceCounter.Add(1) & sequenceMask
	var id uint64 = seq
	if isRequest {
		id |= requestBit
	}
	if highPriority {
		id |= highPriorityBit
	}
	return MessageID(id)
}

// Valid reports whether this id carries a non-zero sequence number, i.e.
// was produced by NewMessageID rather than being the zero value.
func (m MessageID) Valid() bool { return uint64(m)&sequenceMask != 0 }

// IsRequest reports whether a reply is expected for this message.
func (m MessageID) IsRequest() bool { return uint64(m)&requestBit != 0 }

// IsHighPriority reports whether this message should jump ahead of normal
// priority messages in the mailbox.
func (m MessageID) IsHighPriority() bool { return uint64(m)&highPriorityBit != 0 }

// IsAnswered reports whether MarkAnswered has been applied to this id.
func (m MessageID) IsAnswered() bool { return uint64(m)&answeredBit != 0 }

// Sequence returns the bare sequence number, stripped of all flag bits.
func (m MessageID) Sequence() uint64 { return uint64(m) & sequenceMask }

// MarkAnswered returns a copy of this id with the answered bit set, used so
// a second reply to the same request can be detected and rejected.
func (m MessageID) MarkAnswered() MessageID {
	return MessageID(uint64(m) | answeredBit)
}

// ResponseID returns the id a reply to this request should carry: same
// sequence and priority, request bit cleared, answered bit set.
func (m MessageID) ResponseID() MessageID {
	base := (uint64(m) &^ requestBit) | answeredBit
	return MessageID(base)
}
