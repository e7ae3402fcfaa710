package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

type staticDiffs string

func (s staticDiffs) Fetch(context.Context, string, string) (string, error) {
	return string(s), nil
}

const deleteAndModifyDiff = `diff --git a/RnDiffApp/.flowconfig b/RnDiffApp/.flowconfig
deleted file mode 100644
index 1111111..0000000
--- a/RnDiffApp/.flowconfig
+++ /dev/null
@@ -1 +0,0 @@
-[ignore]
diff --git a/RnDiffApp/Gemfile b/RnDiffApp/Gemfile
index 2222222..3333333 100644
--- a/RnDiffApp/Gemfile
+++ b/RnDiffApp/Gemfile
@@ -1 +1 @@
-ruby '2.7.5'
+ruby '>= 2.6.10'
`

func TestDiffFiles(t *testing.T) {
	out, err := DiffFiles(context.Background(), staticDiffs(deleteAndModifyDiff), DiffFilesInput{
		FromVersion: "0.70.0",
		ToVersion:   "0.71.0",
		Ignore:      []string{"**/Gemfile"},
	})
	if err != nil {
		t.Fatalf("DiffFiles failed: %v", err)
	}
	if len(out.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(out.Files))
	}
	flow, gem := out.Files[0], out.Files[1]
	if flow.Path != "RnDiffApp/.flowconfig" || !flow.Deleted || flow.Change != "pending" {
		t.Errorf("flowconfig = %+v", flow)
	}
	if gem.Change != "ignored" || gem.Diff != "" {
		t.Errorf("Gemfile = %+v, want ignored without diff text", gem)
	}
	if out.Pending != 1 || out.Ignored != 1 {
		t.Errorf("pending/ignored = %d/%d, want 1/1", out.Pending, out.Ignored)
	}
}

func TestDiffFiles_InvalidVersion(t *testing.T) {
	_, err := DiffFiles(context.Background(), staticDiffs(""), DiffFilesInput{FromVersion: "0.70", ToVersion: "0.71.0"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}
