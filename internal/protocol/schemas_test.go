package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"kitchenrush.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	obsSchema := compile("obs.schema.json")
	actSchema := compile("act.schema.json")
	resultSchema := compile("result.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{"type":"HELLO","protocol_version":"1.0","team":"RED","name":"chef"}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "match_id":"m1",
	  "team":"BLUE",
	  "robot_ids":[2,3],
	  "match_params":{"total_turns":500,"turn_timeout_ms":500,"cook_progress":20,"burn_progress":40,"seed":1337},
	  "map":{"width":3,"height":3,"rows":["###","#b#","###"]},
	  "catalogs":{"foods_digest":"deadbeef","shop_digest":"deadbeef"}
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var obs any
	_ = json.Unmarshal([]byte(`{
	  "type":"OBS",
	  "protocol_version":"1.0",
	  "turn":3,
	  "team":"RED",
	  "deadline_ms":500,
	  "money":150,
	  "opponent_money":140,
	  "active_map":"RED",
	  "switch_open":false,
	  "orders":[{"order_id":1,"required":["EGG"],"reward":10,"created_turn":0,"expires_turn":100}],
	  "robots":[{"id":0,"team":"RED","map":"RED","x":2,"y":2,"holding":{"kind":"PLATE","foods":[{"kind":"FOOD","food_name":"EGG","cook":"COOKED"}]}}],
	  "stations":[{"x":2,"y":1,"tile":"COOKER","item":{"kind":"PAN"},"cook_progress":0}]
	}`), &obs)
	validate(obsSchema, obs)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "turn":3,
	  "actions":[{"robot":0,"kind":"move","dx":1,"dy":0},{"robot":0,"kind":"buy","x":1,"y":1,"item":"EGG"}]
	}`), &act)
	validate(actSchema, act)

	var result any
	_ = json.Unmarshal([]byte(`{"type":"RESULT","protocol_version":"1.0","match_id":"m1","winner":"DRAW","red_money":5,"blue_money":5,"reason":"turn_limit","turns":500}`), &result)
	validate(resultSchema, result)
}

func TestDecodeAct(t *testing.T) {
	act, err := protocol.DecodeAct([]byte(`{"type":"ACT","protocol_version":"1.0","turn":7,"actions":[{"robot":1,"kind":"chop","x":3,"y":2}]}`))
	if err != nil {
		t.Fatalf("DecodeAct: %v", err)
	}
	if act.Turn != 7 || len(act.Actions) != 1 || act.Actions[0].Kind != protocol.ActChop || act.Actions[0].X != 3 {
		t.Fatalf("decoded: %+v", act)
	}

	bad := []string{
		`{"type":"ACT","protocol_version":"1.0","turn":7,"actions":[{"robot":1,"kind":"fly"}]}`,
		`{"type":"ACT","protocol_version":"1.0","turn":-1,"actions":[]}`,
		`{"type":"ACT","protocol_version":"1.0","turn":1,"actions":[{"robot":1,"kind":"move","extra":true}]}`,
		`{"type":"ACT","protocol_version":"1.0"}`,
		`not json`,
	}
	for _, b := range bad {
		if _, err := protocol.DecodeAct([]byte(b)); err == nil || !strings.Contains(err.Error(), protocol.ErrProtoBadRequest) {
			t.Fatalf("expected %s for %s, got %v", protocol.ErrProtoBadRequest, b, err)
		}
	}
}
