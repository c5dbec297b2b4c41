package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action layer. Rejections are normal outcomes, not faults.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownRobot = "E_UNKNOWN_ROBOT"
	ErrAlreadyMoved = "E_ALREADY_MOVED"
	ErrAlreadyActed = "E_ALREADY_ACTED"
	ErrOutOfRange   = "E_OUT_OF_RANGE"
	ErrBlocked      = "E_BLOCKED"
	ErrBadTarget    = "E_BAD_TARGET"
	ErrHandsFull    = "E_HANDS_FULL"
	ErrHandsEmpty   = "E_HANDS_EMPTY"
	ErrNoMoney      = "E_NO_MONEY"
	ErrNoMatch      = "E_NO_MATCH"
	ErrNotAllowed   = "E_NOT_ALLOWED"
	ErrConflict     = "E_CONFLICT"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrStale        = "E_STALE"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownRobot:    {},
	ErrAlreadyMoved:    {},
	ErrAlreadyActed:    {},
	ErrOutOfRange:      {},
	ErrBlocked:         {},
	ErrBadTarget:       {},
	ErrHandsFull:       {},
	ErrHandsEmpty:      {},
	ErrNoMoney:         {},
	ErrNoMatch:         {},
	ErrNotAllowed:      {},
	ErrConflict:        {},
	ErrRateLimit:       {},
	ErrStale:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
