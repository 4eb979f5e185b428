package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ValidatorsFilename is the validators artifact name inside the output
// directory.
const ValidatorsFilename = "validators.json"

// ValidatorKey addresses one compiled predicate. Body validators use a
// zero Status and empty ContentType.
type ValidatorKey struct {
	OperationID string
	Status      int
	ContentType string
}

func (k ValidatorKey) String() string {
	if k.Status == 0 {
		return k.OperationID + "#body"
	}
	return fmt.Sprintf("%s#%d:%s", k.OperationID, k.Status, k.ContentType)
}

// ValidationResult is the outcome of one validation call.
type ValidationResult struct {
	OK     bool
	Errors []FieldError
}

var okResult = ValidationResult{OK: true}

// ValidatorSet holds the compiled predicates for a manifest, keyed by
// operation/status/content type, plus the content hash of the schema
// material they were compiled from. Immutable after EmitValidators.
type ValidatorSet struct {
	Hash     string
	Provider string
	preds    map[ValidatorKey]Predicate
}

// ValidateBody checks a decoded request body. Operations without a
// body validator pass unconditionally: validation is opt-in.
func (v *ValidatorSet) ValidateBody(operationID string, data any) ValidationResult {
	return v.run(ValidatorKey{OperationID: operationID}, data)
}

// ValidateResponse checks a response payload for a status/content-type
// pair. Missing validators pass unconditionally.
func (v *ValidatorSet) ValidateResponse(operationID string, status int, contentType string, data any) ValidationResult {
	return v.run(ValidatorKey{OperationID: operationID, Status: status, ContentType: contentType}, data)
}

func (v *ValidatorSet) run(key ValidatorKey, data any) ValidationResult {
	if v == nil {
		return okResult
	}
	p, ok := v.preds[key]
	if !ok {
		return okResult
	}
	errs := p(data)
	if len(errs) == 0 {
		return okResult
	}
	return ValidationResult{OK: false, Errors: errs}
}

// Keys returns all validator keys, sorted for determinism.
func (v *ValidatorSet) Keys() []ValidatorKey {
	keys := make([]ValidatorKey, 0, len(v.preds))
	for k := range v.preds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Len returns the number of compiled predicates.
func (v *ValidatorSet) Len() int {
	if v == nil {
		return 0
	}
	return len(v.preds)
}

// EmitValidators compiles one predicate per (operationId, body) and
// (operationId, status, contentType) pair found in the manifest, using
// the given provider against the registry's components.
//
// A compile failure for one operation disables validation for that
// operation only; the build keeps going with a warning.
func EmitValidators(m *Manifest, reg *Registry, provider SchemaProvider, logger *slog.Logger) *ValidatorSet {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	components := reg.Components()
	set := &ValidatorSet{
		Provider: provider.Name(),
		preds:    make(map[ValidatorKey]Predicate),
	}

	for _, op := range m.Operations() {
		opFailed := false
		var opPreds map[ValidatorKey]Predicate

		compileOne := func(key ValidatorKey, ref string) {
			if opFailed || ref == "" {
				return
			}
			node := &SchemaNode{Kind: SchemaRef, Ref: refComponent(ref)}
			p, err := provider.Compile(node, components)
			if err != nil {
				logger.Warn("validator compile failed; disabling validation for operation",
					"operation", op.OperationID, "key", key.String(), "error", err)
				opFailed = true
				return
			}
			if opPreds == nil {
				opPreds = make(map[ValidatorKey]Predicate)
			}
			opPreds[key] = p
		}

		if op.Args.Body != nil {
			compileOne(ValidatorKey{OperationID: op.OperationID}, op.Args.Body.SchemaRef)
		}
		for _, r := range op.Responses {
			if r.SchemaRef == "" || r.ContentType == "" {
				continue
			}
			key := ValidatorKey{OperationID: op.OperationID, Status: r.Status, ContentType: r.ContentType}
			ref := r.SchemaRef
			if r.IsArray {
				// Wrap the element ref in an array schema.
				if opFailed {
					continue
				}
				node := &SchemaNode{
					Kind:  SchemaArray,
					Items: &SchemaNode{Kind: SchemaRef, Ref: refComponent(ref)},
				}
				p, err := provider.Compile(node, components)
				if err != nil {
					logger.Warn("validator compile failed; disabling validation for operation",
						"operation", op.OperationID, "key", key.String(), "error", err)
					opFailed = true
					continue
				}
				if opPreds == nil {
					opPreds = make(map[ValidatorKey]Predicate)
				}
				opPreds[key] = p
				continue
			}
			compileOne(key, ref)
		}

		if opFailed {
			continue
		}
		for k, p := range opPreds {
			set.preds[k] = p
		}
	}

	set.Hash = ContentHash(m, reg, set)
	return set
}

// ContentHash hashes the schema material a validator set was compiled
// from: component schemas plus the sorted validator keys. Rebuilds with
// unchanged schemas produce the same hash, which lets callers skip
// recompiling downstream artifacts.
func ContentHash(m *Manifest, reg *Registry, set *ValidatorSet) string {
	h := sha256.New()

	for _, name := range reg.Names() {
		node, _ := reg.Resolve(name)
		data, _ := json.Marshal(RenderSchema(node))
		fmt.Fprintf(h, "%s=%s\n", name, data)
	}
	if set != nil {
		for _, k := range set.Keys() {
			fmt.Fprintln(h, k.String())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidatorsFile is the persisted validators artifact: the content
// hash plus the key inventory. Predicates themselves are recompiled
// from the OpenAPI components at load; the hash decides whether a
// cached compiled set can be reused.
type ValidatorsFile struct {
	ValidatorsVersion int                 `json:"validatorsVersion"`
	Hash              string              `json:"hash"`
	Provider          string              `json:"provider"`
	Keys              []ValidatorsFileKey `json:"keys"`
	Generator         ManifestGenerator   `json:"generator"`
}

// ValidatorsFileKey is one key entry in the validators artifact.
type ValidatorsFileKey struct {
	OperationID string `json:"operationId"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// WriteValidators persists the validator inventory to dir. When the
// on-disk artifact already carries the same hash the write is skipped
// and false is returned.
func WriteValidators(dir string, set *ValidatorSet) (wrote bool, err error) {
	path := filepath.Join(dir, ValidatorsFilename)

	if prev, err := LoadValidatorsFile(dir); err == nil && prev.Hash == set.Hash {
		return false, nil
	}

	vf := ValidatorsFile{
		ValidatorsVersion: 1,
		Hash:              set.Hash,
		Provider:          set.Provider,
		Generator: ManifestGenerator{
			Name:    GeneratorName,
			Version: GeneratorVersion,
		},
	}
	for _, k := range set.Keys() {
		vf.Keys = append(vf.Keys, ValidatorsFileKey{
			OperationID: k.OperationID,
			Status:      k.Status,
			ContentType: k.ContentType,
		})
	}

	data, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode validators: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// LoadValidatorsFile reads the validators artifact from dir.
func LoadValidatorsFile(dir string) (*ValidatorsFile, error) {
	path := filepath.Join(dir, ValidatorsFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vf ValidatorsFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &vf, nil
}

func refComponent(ref string) string {
	return strings.TrimPrefix(ref, "#/components/schemas/")
}
