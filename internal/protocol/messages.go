package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Team            string `json:"team"`
	Name            string `json:"name,omitempty"`
	Token           string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	MatchID         string         `json:"match_id"`
	Team            string         `json:"team"`
	RobotIDs        []int          `json:"robot_ids"`
	MatchParams     MatchParams    `json:"match_params"`
	Map             MapView        `json:"map"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type MatchParams struct {
	TotalTurns    int   `json:"total_turns"`
	TurnTimeoutMs int   `json:"turn_timeout_ms"`
	CookProgress  int   `json:"cook_progress"`
	BurnProgress  int   `json:"burn_progress"`
	Seed          int64 `json:"seed"`
}

type MapView struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Rows   []string `json:"rows"`
}

type CatalogDigests struct {
	FoodsDigest string `json:"foods_digest"`
	ShopDigest  string `json:"shop_digest"`
}

// RESULT (server -> client), sent once when the match finishes.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MatchID         string `json:"match_id"`
	Winner          string `json:"winner"`
	RedMoney        int    `json:"red_money"`
	BlueMoney       int    `json:"blue_money"`
	Reason          string `json:"reason"`
	Turns           int    `json:"turns"`
}
