package http

import "github.com/santhosh-tekuri/jsonschema/v5"

// webhookSchema enforces the minimum contract with the PineScript sender.
// Everything else in the body is opaque and stored verbatim.
const webhookSchemaJSON = `{
	"type": "object",
	"required": ["ticker", "type"],
	"properties": {
		"ticker": {"type": "string", "minLength": 1},
		"type": {"type": "string", "minLength": 1},
		"timestamp": {"type": "string"},
		"data": {"type": "object"}
	}
}`

var webhookSchema = jsonschema.MustCompileString("webhook.json", webhookSchemaJSON)
