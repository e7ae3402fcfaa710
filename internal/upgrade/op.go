// Package upgrade drives each diffed file through model-assisted review.
package upgrade

import (
	"bytes"
	"encoding/json"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/session"
)

// OpKind is an operation the model may request.
type OpKind int

const (
	OpPatch OpKind = iota
	OpCreateFile
	OpDeleteFile
	OpReadFile
	OpListFiles

	opKindCount
)

var opNames = [opKindCount]string{
	OpPatch:      "patch",
	OpCreateFile: "createFile",
	OpDeleteFile: "deleteFile",
	OpReadFile:   session.FuncReadFile,
	OpListFiles:  session.FuncListFiles,
}

// MutatingOps are offered to the model when upgrading a file.
var MutatingOps = []OpKind{OpPatch, OpCreateFile, OpDeleteFile}

// ReadOnlyOps are offered to the model in chat mode.
var ReadOnlyOps = []OpKind{OpReadFile, OpListFiles}

// String returns the function name the model sees.
func (k OpKind) String() string {
	if k < 0 || k >= opKindCount {
		return "unknown"
	}
	return opNames[k]
}

// Valid reports whether k names a known operation.
func (k OpKind) Valid() bool {
	return k >= 0 && k < opKindCount
}

// ParseOpKind maps a function name to its kind.
func ParseOpKind(name string) (OpKind, bool) {
	for k, n := range opNames {
		if n == name {
			return OpKind(k), true
		}
	}
	return 0, false
}

// Op is a validated operation payload.
type Op struct {
	Kind     OpKind
	Path     string
	Contents string
}

type opPayload struct {
	Path     *string `json:"path"`
	Contents *string `json:"contents"`
}

// ParseFunctionCall validates a model function call against the payload
// schema of its kind. Only kinds in allowed are accepted. Every failure is
// MALFORMED_FUNCTION_CALL.
func ParseFunctionCall(fc *session.FunctionCall, allowed ...OpKind) (Op, error) {
	if fc == nil || fc.Name == "" {
		return Op{}, errors.NewMalformedFunctionCall("", "missing function name")
	}

	kind, ok := ParseOpKind(fc.Name)
	if !ok || !contains(allowed, kind) {
		return Op{}, errors.NewMalformedFunctionCall(fc.Name, "unknown function")
	}

	args := bytes.TrimSpace([]byte(fc.Arguments))
	if len(args) == 0 {
		args = []byte("{}")
	}
	var p opPayload
	if err := json.Unmarshal(args, &p); err != nil {
		return Op{}, errors.NewMalformedFunctionCall(fc.Name, "arguments are not valid JSON: "+err.Error())
	}

	op := Op{Kind: kind}
	if p.Path != nil {
		op.Path = *p.Path
	}
	if p.Contents != nil {
		op.Contents = *p.Contents
	}

	switch kind {
	case OpPatch, OpCreateFile:
		if op.Path == "" {
			return Op{}, errors.NewMalformedFunctionCall(fc.Name, "path is required")
		}
		if p.Contents == nil {
			return Op{}, errors.NewMalformedFunctionCall(fc.Name, "contents is required")
		}
	case OpDeleteFile, OpReadFile:
		if op.Path == "" {
			return Op{}, errors.NewMalformedFunctionCall(fc.Name, "path is required")
		}
	case OpListFiles:
		// path is optional and defaults to the project root
	}
	return op, nil
}

func contains(kinds []OpKind, k OpKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}
