// Package schemas holds the embedded JSON Schemas that postcheck validates
// user-authored files against.
package schemas

import _ "embed"

// AnalysisSchemaJSON is the JSON Schema for analysis.yaml files.
//
//go:embed analysis.schema.json
var AnalysisSchemaJSON string
