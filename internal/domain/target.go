package domain

import "time"

// ThreadType - kind of conversation a notification goes to.
type ThreadType string

const (
	ThreadUser  ThreadType = "user"
	ThreadGroup ThreadType = "group"
)

// Target - one monitored product and where its notifications go.
type Target struct {
	Key              string
	ProductName      string
	SessionKey       string
	ThreadID         string
	ThreadType       ThreadType
	MinChangePercent float64
	Interval         time.Duration
}

// Policy returns the target's default dispatch policy.
func (t Target) Policy() Policy {
	return Policy{MinChangePercent: t.MinChangePercent}
}

// FeedPage - raw feed payload of one poll.
type FeedPage struct {
	Markup   string
	LastDate string
	LastTime string
}

// Viewport - rasterization parameters.
type Viewport struct {
	Width     int
	Scale     float64
	MaxHeight int
}

// DefaultViewport - portrait card, 2x for phones.
var DefaultViewport = Viewport{Width: 720, Scale: 2, MaxHeight: 2000}

// MessageContent - text plus local file attachments.
type MessageContent struct {
	Text        string
	Attachments []string
}

// SendResult - identifiers of delivered messages.
type SendResult struct {
	MessageIDs []string
}
