package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	actSchemaOnce sync.Once
	actSchema     *jsonschema.Schema
	actSchemaErr  error
)

func compileEmbedded(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

// DecodeAct validates raw against act.schema.json and decodes it.
// Messages that fail validation are reported as ErrProtoBadRequest.
func DecodeAct(raw []byte) (ActMsg, error) {
	actSchemaOnce.Do(func() {
		actSchema, actSchemaErr = compileEmbedded("act.schema.json")
	})
	if actSchemaErr != nil {
		return ActMsg{}, actSchemaErr
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ActMsg{}, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	if err := actSchema.Validate(v); err != nil {
		return ActMsg{}, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	var act ActMsg
	if err := json.Unmarshal(raw, &act); err != nil {
		return ActMsg{}, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	return act, nil
}
