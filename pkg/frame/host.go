package frame

import "time"

// FrameToken identifies a pending frame request so it can be cancelled.
type FrameToken uint64

// FrameCallback is invoked by a Host once per requested frame.
type FrameCallback func(now time.Time)

// Host is the refresh-timing facility the registry runs on.
//
// RequestFrame schedules cb to run once, asynchronously, before the next
// refresh. It must not call cb before returning. CancelFrame drops a pending
// request; cancelling a token that already ran or was never issued is a no-op.
type Host interface {
	RequestFrame(cb FrameCallback) FrameToken
	CancelFrame(token FrameToken)
}
