// internal/server/schema.go
package server

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "approval-service/internal/common/errors"
)

// createDealSchema gates the create-deal body before it reaches the workflow.
// Cross-field rules (total vs line items) stay in the workflow; the schema
// only rejects structurally broken requests.
const createDealSchema = `{
	"type": "object",
	"required": ["clientName", "total", "items"],
	"properties": {
		"clientName": {"type": "string", "minLength": 1},
		"clientEmail": {"type": "string", "format": "email"},
		"currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
		"total": {"type": "integer", "minimum": 1},
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["description", "quantity", "unitPrice"],
				"properties": {
					"description": {"type": "string", "minLength": 1},
					"quantity": {"type": "number", "exclusiveMinimum": 0},
					"unitPrice": {"type": "integer", "minimum": 1}
				}
			}
		},
		"webhookUrl": {"type": "string", "format": "uri"},
		"webhookSecret": {"type": "string"}
	}
}`

var createDealSchemaLoader = gojsonschema.NewStringLoader(createDealSchema)

func validateCreateDealBody(body []byte) error {
	result, err := gojsonschema.Validate(createDealSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.NewValidationError("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}
