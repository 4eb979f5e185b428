package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestVersion is the current manifest file format version.
const ManifestVersion = 1

// GeneratorName identifies the tool in emitted artifacts.
const GeneratorName = "adorn"

// GeneratorVersion is the tool version stamped into artifacts.
const GeneratorVersion = "0.4.0"

// Manifest is the persisted versioned IR binding decorated operations
// to wire-level schemas. It is written wholesale by the build step and
// read by the runtime binder; it is never patched in place.
type Manifest struct {
	ManifestVersion int                  `json:"manifestVersion"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	Generator       ManifestGenerator    `json:"generator"`
	Schemas         ManifestSchemas      `json:"schemas"`
	Validation      ManifestValidation   `json:"validation"`
	Controllers     []ManifestController `json:"controllers"`
}

// ManifestGenerator identifies the tool that produced the manifest.
type ManifestGenerator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Go      string `json:"go,omitempty"`
}

// ManifestSchemas points at the paired schema document.
type ManifestSchemas struct {
	Kind                     string `json:"kind"` // "openapi-3.1"
	File                     string `json:"file"` // "./openapi.json"
	ComponentsSchemasPointer string `json:"componentsSchemasPointer"`
}

// ManifestValidation records how request/response validation runs.
type ManifestValidation struct {
	// Mode is "none", "jsonschema-runtime", or "precompiled".
	Mode string `json:"mode"`
	// PrecompiledModule is the validators artifact file, or null.
	PrecompiledModule *string `json:"precompiledModule"`
}

// ManifestController groups the operations of one controller.
type ManifestController struct {
	ControllerID string              `json:"controllerId"`
	BasePath     string              `json:"basePath"`
	Operations   []ManifestOperation `json:"operations"`
}

// ManifestOperation is one operation's wire contract.
type ManifestOperation struct {
	OperationID string             `json:"operationId"`
	HTTP        ManifestHTTP       `json:"http"`
	Handler     ManifestHandler    `json:"handler"`
	Args        ManifestArgs       `json:"args"`
	Responses   []ManifestResponse `json:"responses"`
	Auth        string             `json:"auth,omitempty"`
	Pagination  bool               `json:"pagination,omitempty"`
}

// ManifestHTTP is the method/path pair of an operation.
type ManifestHTTP struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// ManifestHandler is the handler identity of an operation.
type ManifestHandler struct {
	MethodName string `json:"methodName"`
}

// ManifestArgs holds per-source argument bindings. Entry order within
// each list follows declared parameter order; Index ties an entry back
// to its call-site argument position.
type ManifestArgs struct {
	Body    *ManifestBodyArg `json:"body"`
	Path    []ManifestArg    `json:"path"`
	Query   []ManifestArg    `json:"query"`
	Headers []ManifestArg    `json:"headers"`
	Cookies []ManifestArg    `json:"cookies"`
}

// ManifestBodyArg describes the request body binding.
type ManifestBodyArg struct {
	Index       int    `json:"index"`
	Required    bool   `json:"required"`
	ContentType string `json:"contentType"`
	SchemaRef   string `json:"schemaRef"`
}

// ManifestArg describes one path/query/header/cookie parameter. Several
// query entries may share an Index when a query object's properties
// were spread into individual parameters.
type ManifestArg struct {
	Name       string `json:"name"`
	Index      int    `json:"index"`
	Required   bool   `json:"required"`
	SchemaRef  string `json:"schemaRef,omitempty"`
	SchemaType string `json:"schemaType,omitempty"`
	// Property is set for spread query-object entries: the property of
	// the object parameter this wire parameter populates.
	Property string `json:"property,omitempty"`
}

// ManifestResponse is one declared response variant.
type ManifestResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	SchemaRef   string `json:"schemaRef,omitempty"`
	IsArray     bool   `json:"isArray,omitempty"`
}

// Operations returns all operations across controllers in order.
func (m *Manifest) Operations() []ManifestOperation {
	var ops []ManifestOperation
	for _, c := range m.Controllers {
		ops = append(ops, c.Operations...)
	}
	return ops
}

// FindOperation looks up an operation by id.
func (m *Manifest) FindOperation(operationID string) (ManifestOperation, bool) {
	for _, c := range m.Controllers {
		for _, op := range c.Operations {
			if op.OperationID == operationID {
				return op, true
			}
		}
	}
	return ManifestOperation{}, false
}

// ManifestFilename is the manifest artifact name inside the output dir.
const ManifestFilename = "manifest.json"

// WriteManifest persists the manifest to dir as indented JSON.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadManifest reads a manifest from dir and checks its version.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.ManifestVersion != ManifestVersion {
		return nil, fmt.Errorf("%s: manifest version %d is not supported (want %d); rebuild with 'adorn build'",
			path, m.ManifestVersion, ManifestVersion)
	}
	return &m, nil
}
