// internal/verification/schema.go
package verification

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// stepSchemas are the shape contracts for submitted step payloads, checked
// before the completeness rules run. They constrain types, not completeness:
// a payload may be schema-valid and still fail the rule set.
var stepSchemas = map[int]map[string]interface{}{
	0: {
		"type":       "object",
		"properties": map[string]interface{}{
			"identity_confirmed": map[string]interface{}{"type": "boolean"},
			"address_confirmed":  map[string]interface{}{"type": "boolean"},
			"contact_confirmed":  map[string]interface{}{"type": "boolean"},
			"notes":              map[string]interface{}{"type": "string"},
		},
		"additionalProperties": true,
	},
	1: {
		"type":       "object",
		"properties": map[string]interface{}{
			"id_document_verified":    map[string]interface{}{"type": "boolean"},
			"bank_statement_verified": map[string]interface{}{"type": "boolean"},
			"income_proof_verified":   map[string]interface{}{"type": "boolean"},
			"notes":                   map[string]interface{}{"type": "string"},
		},
		"additionalProperties": true,
	},
	2: {
		"type":       "object",
		"properties": map[string]interface{}{
			"income_verified":             map[string]interface{}{"type": "boolean"},
			"loan_amount_appropriate":     map[string]interface{}{"type": "boolean"},
			"repayment_capacity_verified": map[string]interface{}{"type": "boolean"},
			"credit_assessment_completed": map[string]interface{}{"type": "boolean"},
			"recommended_amount":          map[string]interface{}{"type": "number", "minimum": 0},
			"notes":                       map[string]interface{}{"type": "string"},
		},
		"additionalProperties": true,
	},
	3: {
		"type":       "object",
		"properties": map[string]interface{}{
			"health_check_passed":    map[string]interface{}{"type": "boolean"},
			"vaccination_verified":   map[string]interface{}{"type": "boolean"},
			"market_value_confirmed": map[string]interface{}{"type": "boolean"},
			"assessed_value":         map[string]interface{}{"type": "number", "minimum": 0},
			"notes":                  map[string]interface{}{"type": "string"},
		},
		"additionalProperties": true,
	},
	4: {
		"type":       "object",
		"properties": map[string]interface{}{
			"verification_summary":  map[string]interface{}{"type": "string"},
			"operator_confirmation": map[string]interface{}{"type": "boolean"},
		},
		"additionalProperties": true,
	},
}

// validateShape checks the submitted payload against the step's schema and
// returns schema violations keyed by field.
func validateShape(ordinal int, data map[string]interface{}) (map[string]string, error) {
	schemaMap, ok := stepSchemas[ordinal]
	if !ok {
		return nil, fmt.Errorf("no schema for ordinal %d", ordinal)
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make(map[string]string, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" {
			field = "payload"
		}
		violations[field] = desc.Description()
	}
	return violations, nil
}
