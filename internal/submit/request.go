package submit

import "oraclewatcher/internal/queue"

// CommitteeSubmission is the wire shape a Crossbar job response carries:
// one committee's signed view of a set of feeds for a given slot (spec §6).
type CommitteeSubmission struct {
	QueueID          queue.ID
	OracleIDs        []queue.ID
	Signatures       [][]byte
	Feeds            []FeedInput
	Slot             uint64
	TimestampSeconds uint64
}

// Request bundles Engine.Run's arguments so a caller assembling a
// submission from an external source does not need to unpack a
// CommitteeSubmission positionally at every call site.
type Request struct {
	Oracles          []*queue.Oracle
	Signatures       [][]byte
	Feeds            []FeedInput
	Slot             uint64
	TimestampSeconds uint64
	NowMs            uint64
}

// RunRequest is Run with its arguments pre-bundled into a Request.
func (e *Engine) RunRequest(r Request) (*Quotes, error) {
	return e.Run(r.Oracles, r.Signatures, r.Feeds, r.Slot, r.TimestampSeconds, r.NowMs)
}
