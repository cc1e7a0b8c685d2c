package policy

import "embed"

const documentSchemaFile = "schema/policy.schema.json"

//go:embed schema/*.json
var schemaFS embed.FS
