package errcode

type Code string

const (
	NotFoundTarget   Code = "NOT_FOUND_TARGET"
	NotFoundSnapshot Code = "NOT_FOUND_SNAPSHOT"
	NotFoundSession  Code = "NOT_FOUND_SESSION"
	NotFoundLogin    Code = "NOT_FOUND_LOGIN"

	FeedUnavailable Code = "FEED_UNAVAILABLE"
	NoQuotes        Code = "NO_QUOTES"
	RenderFailed    Code = "RENDER_FAILED"
	SendFailed      Code = "SEND_FAILED"
	Conflict        Code = "CONFLICT"

	BadRequest Code = "BAD_REQUEST"
	Internal   Code = "INTERNAL_ERROR"
)
