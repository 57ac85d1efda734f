package sample

import (
	"encoding/json"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lychee-technology/querycore"
	"github.com/lychee-technology/querycore/qcerr"
)

// WireConfig is the sample binaries' on-disk config shape: the embedded
// querycore.Config plus the bits specific to this sample's HTTP wiring
// (manifest path, listen address, peer worker addresses).
type WireConfig struct {
	Core         querycore.Config `json:"core"`
	ManifestPath string           `json:"manifestPath"`
	ListenAddr   string           `json:"listenAddr"`
	WorkerAddrs  []string         `json:"workerAddrs"`
}

// configSchemaJSON is the JSON Schema document the sample config file must
// satisfy, validated the same way the teacher validates arbitrary JSON
// payloads against a caller-supplied schema (marshal to jsonschema.Schema,
// Resolve, then Validate).
const configSchemaJSON = `{
  "type": "object",
  "required": ["manifestPath", "listenAddr"],
  "properties": {
    "core": {"type": "object"},
    "manifestPath": {"type": "string", "minLength": 1},
    "listenAddr": {"type": "string", "minLength": 1},
    "workerAddrs": {"type": "array", "items": {"type": "string"}}
  }
}`

// ValidateConfigJSON checks raw config bytes against configSchemaJSON before
// they are unmarshaled into a WireConfig.
func ValidateConfigJSON(data []byte) error {
	var dataToValidate any
	if err := json.Unmarshal(data, &dataToValidate); err != nil {
		return qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "unmarshaling config JSON").WithCause(err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(configSchemaJSON), &schema); err != nil {
		return qcerr.New(qcerr.TypeConfig, qcerr.CodeInvalidConfig, "unmarshaling config schema").WithCause(err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return qcerr.New(qcerr.TypeConfig, qcerr.CodeInvalidConfig, "resolving config schema").WithCause(err)
	}
	if err := resolved.Validate(dataToValidate); err != nil {
		return qcerr.New(qcerr.TypeConfig, qcerr.CodeInvalidConfig, "config JSON failed schema validation").WithCause(err)
	}
	return nil
}

// LoadWireConfig reads, schema-validates, and parses a sample config file,
// filling in querycore.DefaultConfig() for the embedded core config when the
// file omits it.
func LoadWireConfig(path string) (*WireConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qcerr.New(qcerr.TypeNotFound, qcerr.CodeInvalidConfig, "reading config file").WithCause(err)
	}
	if err := ValidateConfigJSON(data); err != nil {
		return nil, err
	}

	cfg := WireConfig{Core: *querycore.DefaultConfig()}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, qcerr.New(qcerr.TypeSerialization, qcerr.CodeSchemaMismatch, "unmarshaling config").WithCause(err)
	}
	if err := cfg.Core.Validate(); err != nil {
		return nil, qcerr.New(qcerr.TypeConfig, qcerr.CodeInvalidConfig, "invalid core config").WithCause(err)
	}
	return &cfg, nil
}
