package scanning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/receiptwiser/internal/bill"
)

// ErrNoJSON is returned when a model response holds no usable JSON object.
var ErrNoJSON = errors.New("no receipt JSON in response")

//go:embed extraction.schema.json
var extractionSchemaJSON []byte

var extractionSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.schema.json", bytes.NewReader(extractionSchemaJSON)); err != nil {
		panic(fmt.Sprintf("adding extraction schema: %v", err))
	}
	return compiler.MustCompile("extraction.schema.json")
}()

// parseReceiptJSON pulls the receipt object out of a model response
func parseReceiptJSON(text string) (*bill.RawReceipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Models sometimes wrap the object in prose, keep the outermost braces
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, ErrNoJSON
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, ErrNoJSON
	}
	text = text[startIdx : endIdx+1]

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	if err := extractionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	var data bill.RawReceipt
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &data, nil
}
