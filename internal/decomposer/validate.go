package decomposer

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mykola/agora/internal/types"
)

//go:embed contract_draft.schema.json
var draftSchemaJSON string

// validateDraft checks one model-produced contract draft against the embedded
// JSON Schema, then against the closed contract type set. Schema failures are
// per-draft: the caller drops the draft and keeps the rest of the batch.
func validateDraft(draft types.ContractDraft) error {
	doc, err := marshalDraft(draft)
	if err != nil {
		return fmt.Errorf("draft does not marshal: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(draftSchemaJSON),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(problems, "; "))
	}

	if !draft.Complete() {
		return fmt.Errorf("draft is missing required fields or has an unknown contract type")
	}
	return nil
}
