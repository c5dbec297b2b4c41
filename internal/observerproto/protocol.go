package observerproto

import (
	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/game"
)

// Version is the observer protocol version (separate from the team WS protocol).
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFrame     = "FRAME"
	TypeEnd       = "END"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// SkipResults drops per-action results from pushed frames.
	SkipResults bool `json:"skip_results,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string                 `json:"protocol_version"`
	Match           snapshot.MatchHeaderV1 `json:"match"`
	Turn            int                    `json:"turn"`
	Latest          *snapshot.FrameV1      `json:"latest,omitempty"`
	Result          *game.Outcome          `json:"result,omitempty"`
}

// Server -> Client. Sent once per resolved turn.
type FrameMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Frame           snapshot.FrameV1 `json:"frame"`
}

// Server -> Client. Sent once when the match is over, then the server closes.
type EndMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Result          game.Outcome `json:"result"`
}
