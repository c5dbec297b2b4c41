package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid tuning")

const (
	ResolveRedFirst  = "RED_FIRST"
	ResolveBlueFirst = "BLUE_FIRST"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TotalTurns    int `yaml:"total_turns" json:"total_turns"`
	TurnTimeoutMs int `yaml:"turn_timeout_ms" json:"turn_timeout_ms"`

	CookProgress int `yaml:"cook_progress" json:"cook_progress"`
	BurnProgress int `yaml:"burn_progress" json:"burn_progress"`
	WashActions  int `yaml:"wash_actions" json:"wash_actions"`

	StartingMoney  int  `yaml:"starting_money" json:"starting_money"`
	AllowOverdraft bool `yaml:"allow_overdraft" json:"allow_overdraft"`

	MaxPlateItems    int  `yaml:"max_plate_items" json:"max_plate_items"`
	RequirePlate     bool `yaml:"require_plate" json:"require_plate"`
	RequirePan       bool `yaml:"require_pan" json:"require_pan"`
	AutoStartCook    bool `yaml:"auto_start_cook" json:"auto_start_cook"`
	DirtyPlateToSink bool `yaml:"dirty_plate_to_sink" json:"dirty_plate_to_sink"`

	// 0 disables escalation.
	MaxConsecutiveForfeits int  `yaml:"max_consecutive_forfeits" json:"max_consecutive_forfeits"`
	EndWhenOrdersExhausted bool `yaml:"end_when_orders_exhausted" json:"end_when_orders_exhausted"`

	ResolveOrder string `yaml:"resolve_order" json:"resolve_order"`

	// Upper bound on controller calls a team may record in one turn.
	MaxRequestsPerTurn int `yaml:"max_requests_per_turn" json:"max_requests_per_turn"`

	RandomOrders RandomOrders `yaml:"random_orders" json:"random_orders"`
}

type RandomOrders struct {
	MinItems      int `yaml:"min_items" json:"min_items"`
	MaxItems      int `yaml:"max_items" json:"max_items"`
	MinDuration   int `yaml:"min_duration" json:"min_duration"`
	MaxDuration   int `yaml:"max_duration" json:"max_duration"`
	RewardPerItem int `yaml:"reward_per_item" json:"reward_per_item"`
	// Turns between consecutive random order starts.
	Spacing int `yaml:"spacing" json:"spacing"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:        "1.0",
		TotalTurns:             500,
		TurnTimeoutMs:          500,
		CookProgress:           20,
		BurnProgress:           40,
		WashActions:            2,
		StartingMoney:          150,
		AllowOverdraft:         false,
		MaxPlateItems:          4,
		RequirePlate:           false,
		RequirePan:             false,
		AutoStartCook:          true,
		DirtyPlateToSink:       true,
		MaxConsecutiveForfeits: 0,
		EndWhenOrdersExhausted: true,
		ResolveOrder:           ResolveRedFirst,
		MaxRequestsPerTurn:     256,
		RandomOrders: RandomOrders{
			MinItems:      1,
			MaxItems:      3,
			MinDuration:   80,
			MaxDuration:   160,
			RewardPerItem: 40,
			Spacing:       25,
		},
	}
}

// Load reads a tuning.yaml on top of Defaults so partial files are allowed.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ResolveOrder = strings.ToUpper(strings.TrimSpace(t.ResolveOrder))
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TotalTurns <= 0:
		return fmt.Errorf("%w: total_turns must be > 0", ErrInvalid)
	case t.TurnTimeoutMs <= 0:
		return fmt.Errorf("%w: turn_timeout_ms must be > 0", ErrInvalid)
	case t.CookProgress <= 0:
		return fmt.Errorf("%w: cook_progress must be > 0", ErrInvalid)
	case t.BurnProgress <= t.CookProgress:
		return fmt.Errorf("%w: burn_progress must be > cook_progress", ErrInvalid)
	case t.WashActions <= 0:
		return fmt.Errorf("%w: wash_actions must be > 0", ErrInvalid)
	case t.StartingMoney < 0:
		return fmt.Errorf("%w: starting_money must be >= 0", ErrInvalid)
	case t.MaxPlateItems <= 0:
		return fmt.Errorf("%w: max_plate_items must be > 0", ErrInvalid)
	case t.MaxConsecutiveForfeits < 0:
		return fmt.Errorf("%w: max_consecutive_forfeits must be >= 0", ErrInvalid)
	case t.MaxRequestsPerTurn <= 0:
		return fmt.Errorf("%w: max_requests_per_turn must be > 0", ErrInvalid)
	}
	switch t.ResolveOrder {
	case ResolveRedFirst, ResolveBlueFirst:
	default:
		return fmt.Errorf("%w: resolve_order %q", ErrInvalid, t.ResolveOrder)
	}
	r := t.RandomOrders
	if r.MinItems <= 0 || r.MaxItems < r.MinItems {
		return fmt.Errorf("%w: random_orders item range", ErrInvalid)
	}
	if r.MinDuration <= 0 || r.MaxDuration < r.MinDuration {
		return fmt.Errorf("%w: random_orders duration range", ErrInvalid)
	}
	if r.Spacing < 0 {
		return fmt.Errorf("%w: random_orders spacing", ErrInvalid)
	}
	return nil
}
