package protocol

// Action kinds accepted in ActionReq.Kind.
const (
	ActMove              = "move"
	ActPickup            = "pickup"
	ActPlace             = "place"
	ActBuy               = "buy"
	ActChop              = "chop"
	ActStartCook         = "start_cook"
	ActTakeFromPan       = "take_from_pan"
	ActWashSink          = "wash_sink"
	ActSubmit            = "submit"
	ActSwitchMaps        = "switch_maps"
	ActTrash             = "trash"
	ActAddFoodToPlate    = "add_food_to_plate"
	ActTakeCleanPlate    = "take_clean_plate"
	ActPutDirtyPlateSink = "put_dirty_plate_in_sink"
)

// IsMoveKind reports whether the kind spends the robot's move budget.
// switch_maps is team level and spends neither budget.
func IsMoveKind(kind string) bool { return kind == ActMove }

var actionKinds = map[string]struct{}{
	ActMove:              {},
	ActPickup:            {},
	ActPlace:             {},
	ActBuy:               {},
	ActChop:              {},
	ActStartCook:         {},
	ActTakeFromPan:       {},
	ActWashSink:          {},
	ActSubmit:            {},
	ActSwitchMaps:        {},
	ActTrash:             {},
	ActAddFoodToPlate:    {},
	ActTakeCleanPlate:    {},
	ActPutDirtyPlateSink: {},
}

func IsKnownAction(kind string) bool {
	_, ok := actionKinds[kind]
	return ok
}

// Cook stages as they appear on the wire.
const (
	CookRaw     = "RAW"
	CookCooking = "COOKING"
	CookCooked  = "COOKED"
	CookBurnt   = "BURNT"
)

// Item kinds as they appear on the wire.
const (
	ItemFood  = "FOOD"
	ItemPlate = "PLATE"
	ItemPan   = "PAN"
)

type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`
	Team            string `json:"team"`
	DeadlineMs      int    `json:"deadline_ms"`

	Money         int    `json:"money"`
	OpponentMoney int    `json:"opponent_money"`
	ActiveMap     string `json:"active_map"`
	SwitchOpen    bool   `json:"switch_open"`

	Orders   []OrderView   `json:"orders"`
	Robots   []RobotView   `json:"robots"`
	Stations []StationView `json:"stations"`
}

type OrderView struct {
	ID          int      `json:"order_id"`
	Required    []string `json:"required"`
	Reward      int      `json:"reward"`
	CreatedTurn int      `json:"created_turn"`
	ExpiresTurn int      `json:"expires_turn"`
}

type RobotView struct {
	ID      int       `json:"id"`
	Team    string    `json:"team"`
	Map     string    `json:"map"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Holding *ItemView `json:"holding,omitempty"`
}

type ItemView struct {
	Kind    string     `json:"kind"`
	Food    string     `json:"food_name,omitempty"`
	Chopped bool       `json:"chopped,omitempty"`
	Cook    string     `json:"cook,omitempty"`
	Dirty   bool       `json:"dirty,omitempty"`
	Foods   []ItemView `json:"foods,omitempty"`
}

type StationView struct {
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Tile         string    `json:"tile"`
	Item         *ItemView `json:"item,omitempty"`
	Count        int       `json:"count,omitempty"`
	CookProgress int       `json:"cook_progress,omitempty"`
	Active       bool      `json:"active,omitempty"`
	DirtyPlates  int       `json:"dirty_plates,omitempty"`
	CleanPlates  int       `json:"clean_plates,omitempty"`
	WashProgress int       `json:"wash_progress,omitempty"`
}

type ActMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Turn            int         `json:"turn"`
	Actions         []ActionReq `json:"actions"`
}

// ActionReq is one controller call. Moves use DX/DY; interactions use X/Y;
// buy also names the Item.
type ActionReq struct {
	Robot int    `json:"robot"`
	Kind  string `json:"kind"`
	DX    int    `json:"dx,omitempty"`
	DY    int    `json:"dy,omitempty"`
	X     int    `json:"x,omitempty"`
	Y     int    `json:"y,omitempty"`
	Item  string `json:"item,omitempty"`
}
