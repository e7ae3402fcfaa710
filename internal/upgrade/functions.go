package upgrade

import "github.com/hpungsan/rnupgrade/internal/llm"

// Functions returns the model-facing definitions for kinds.
func Functions(kinds ...OpKind) []llm.Function {
	out := make([]llm.Function, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, definition(k))
	}
	return out
}

func definition(k OpKind) llm.Function {
	pathProp := map[string]any{
		"type":        "string",
		"description": "Path relative to the project root",
	}
	contentsProp := map[string]any{
		"type":        "string",
		"description": "The complete new contents of the file",
	}

	switch k {
	case OpPatch:
		return llm.Function{
			Name:        k.String(),
			Description: "Replace an existing file with its upgraded contents",
			Parameters:  object(map[string]any{"path": pathProp, "contents": contentsProp}, "path", "contents"),
		}
	case OpCreateFile:
		return llm.Function{
			Name:        k.String(),
			Description: "Create a new file",
			Parameters:  object(map[string]any{"path": pathProp, "contents": contentsProp}, "path", "contents"),
		}
	case OpDeleteFile:
		return llm.Function{
			Name:        k.String(),
			Description: "Delete a file that the new version no longer needs",
			Parameters:  object(map[string]any{"path": pathProp}, "path"),
		}
	case OpReadFile:
		return llm.Function{
			Name:        k.String(),
			Description: "Read the contents of a project file",
			Parameters:  object(map[string]any{"path": pathProp}, "path"),
		}
	default:
		return llm.Function{
			Name:        k.String(),
			Description: "List files and directories; directories end with /",
			Parameters: object(map[string]any{"path": map[string]any{
				"type":        "string",
				"description": "Directory relative to the project root; empty for the root",
			}}),
		}
	}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
