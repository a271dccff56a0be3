package ol

import "errors"

type ID struct { // GUID
	Agent string `json:"agent"`
	Seq   int    `json:"seq"`
}

func (id ID) Unpack() (string, int) {
	return id.Agent, id.Seq
}

type LV int // index for op log

// Root is the head of an empty log.
const Root LV = -1

// Entry is one committed edit. Diffs are already rebased onto the entry
// before it; Base is the head its author had seen.
type Entry[D any] struct {
	ID    ID  `json:"id"`
	LV    LV  `json:"lv"`
	Base  LV  `json:"base"`
	Diffs []D `json:"diffs"`
}

type RemoteVersion map[string]int // [agent] : last known sequence number

var (
	ErrStaleHead   = errors.New("ol: head moved during commit")
	ErrUnknownBase = errors.New("ol: base is not part of the log")
	ErrSeqGap      = errors.New("ol: sequence number out of order")
)
