package upgrade

import (
	"fmt"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/diff"
)

const orientation = `You are an expert React Native developer upgrading an application from React Native %s to %s.
You will receive the upstream template diff for one file together with the project's current version of that file.
Apply the upstream change to the project's file by calling exactly one of the provided functions.`

const admonishments = `Rules:
- Respond with a function call only.
- Keep every project-specific customization that the upstream diff does not touch.
- patch and createFile take the complete file contents, never a diff.
- Use deleteFile only when the upstream diff deletes the file.`

func instructions(rec *diff.FileRecord, contents string, exists bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Upgrade the file %s using this diff from the React Native upgrade template:\n\n```diff\n%s```\n\n", rec.Path, rec.Diff)

	switch {
	case diff.IsDeletedFile(rec):
		b.WriteString("The new template deletes this file.")
		if exists {
			fmt.Fprintf(&b, " Current contents of %s:\n\n```\n%s\n```", rec.Path, contents)
		}
	case !exists:
		b.WriteString("The file does not exist in the project yet. Create it.")
	default:
		fmt.Fprintf(&b, "Current contents of %s:\n\n```\n%s\n```", rec.Path, contents)
	}
	return b.String()
}
