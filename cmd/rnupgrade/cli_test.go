package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/rnupgrade/internal/config"
	"github.com/hpungsan/rnupgrade/internal/db"
	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/ops"
	"github.com/hpungsan/rnupgrade/internal/session"
	"github.com/hpungsan/rnupgrade/internal/upgrade"
)

const appDiff = `diff --git a/App.tsx b/App.tsx
index 1111111..2222222 100644
--- a/App.tsx
+++ b/App.tsx
@@ -1 +1 @@
-old app
+new app
`

// testEnv creates an environment with a fresh base directory and database.
func testEnv(t *testing.T) (*appEnv, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	base := t.TempDir()
	database, err := db.Init(base)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	var stdout, stderr bytes.Buffer
	notInteractive := false
	env := &appEnv{
		db:          database,
		cfg:         config.DefaultConfig(),
		baseDir:     base,
		stdin:       strings.NewReader(""),
		stdout:      &stdout,
		stderr:      &stderr,
		interactive: &notInteractive,
	}
	return env, &stdout, &stderr
}

// runCLI executes the CLI with args after the program name.
func runCLI(t *testing.T, env *appEnv, args ...string) error {
	t.Helper()
	return newCLIApp(env).RunContext(context.Background(), append([]string{"rnupgrade"}, args...))
}

// fakeProvider serves upstream diffs and model completions.
func fakeProvider(t *testing.T, chat func(body []byte) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case strings.HasSuffix(r.URL.Path, "0.72.0..0.73.0.diff"):
			fmt.Fprint(w, appDiff)
		case r.URL.Path == "/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, chat(body))
		case r.URL.Path == "/embeddings":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":[{"embedding":[1,0]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func patchResponse(path, contents string) string {
	args, _ := json.Marshal(map[string]string{"path": path, "contents": contents})
	resp := map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{
			"content":       nil,
			"function_call": map[string]string{"name": "patch", "arguments": string(args)},
		}}},
		"usage": map[string]int{"prompt_tokens": 1000, "completion_tokens": 500},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func textResponse(text string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5},
	})
	return string(data)
}

// seedRun records a finished run for project.
func seedRun(t *testing.T, env *appEnv, project string) string {
	t.Helper()
	out, err := ops.RecordRun(context.Background(), env.db, ops.RecordInput{
		Project:     project,
		FromVersion: "0.72.0",
		ToVersion:   "0.73.0",
		Model:       "gpt-4",
		Summary: &upgrade.Summary{
			Counts: map[diff.Change]int{diff.ChangeModified: 1},
			Usage:  llm.Usage{PromptTokens: 1000, CompletionTokens: 500},
			Cost:   "$0.06",
			Records: []*diff.FileRecord{
				{Path: "App.tsx", Change: diff.ChangeModified, CustomPrompts: []string{}},
			},
		},
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	return out.ID
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"7d", 7, false},
		{"0d", 0, false},
		{"30d", 30, false},
		{"7", 0, true},
		{"7h", 0, true},
		{"xd", 0, true},
		{"-1d", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"rnupgrade"}, false},
		{[]string{"rnupgrade", "upgrade"}, true},
		{[]string{"rnupgrade", "chat"}, true},
		{[]string{"rnupgrade", "--help"}, true},
		{[]string{"rnupgrade", "-C", "/tmp/app", "history"}, true},
		{[]string{"rnupgrade", "bogus"}, false},
		{[]string{"rnupgrade", "-"}, false},
	}
	for _, tt := range tests {
		if got := isCLIMode(tt.args); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	for _, arg := range []string{"--help", "-h", "--version", "-v", "help"} {
		if !isHelpOrVersion([]string{"rnupgrade", arg}) {
			t.Errorf("isHelpOrVersion(%q) = false, want true", arg)
		}
	}
	if isHelpOrVersion([]string{"rnupgrade", "history"}) {
		t.Error("isHelpOrVersion(history) = true, want false")
	}
}

func TestBaseDir_Override(t *testing.T) {
	t.Setenv("RNUPGRADE_HOME", "/tmp/rn-home")
	got, err := baseDir()
	if err != nil {
		t.Fatalf("baseDir() error = %v", err)
	}
	if got != "/tmp/rn-home" {
		t.Errorf("baseDir() = %q, want /tmp/rn-home", got)
	}
}

func TestHistoryShowDelete(t *testing.T) {
	env, stdout, _ := testEnv(t)
	project := t.TempDir()
	id := seedRun(t, env, project)
	seedRun(t, env, t.TempDir())

	if err := runCLI(t, env, "-C", project, "history"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	var list ops.ListOutput
	if err := json.Unmarshal(stdout.Bytes(), &list); err != nil {
		t.Fatalf("history output: %v\n%s", err, stdout.String())
	}
	if len(list.Items) != 1 || list.Items[0].ID != id {
		t.Fatalf("history items = %+v, want only %s", list.Items, id)
	}
	if list.Items[0].Counts["modified"] != 1 {
		t.Errorf("counts = %v, want modified:1", list.Items[0].Counts)
	}

	stdout.Reset()
	if err := runCLI(t, env, "history", "--all"); err != nil {
		t.Fatalf("history --all error = %v", err)
	}
	if err := json.Unmarshal(stdout.Bytes(), &list); err != nil {
		t.Fatalf("history --all output: %v", err)
	}
	if list.Pagination.Total != 2 {
		t.Errorf("total = %d, want 2", list.Pagination.Total)
	}

	stdout.Reset()
	if err := runCLI(t, env, "-C", project, "show"); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(stdout.String(), id) || !strings.Contains(stdout.String(), "App.tsx") {
		t.Errorf("show output missing run or file:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := runCLI(t, env, "delete", id); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	var del ops.DeleteOutput
	if err := json.Unmarshal(stdout.Bytes(), &del); err != nil {
		t.Fatalf("delete output: %v", err)
	}
	if !del.Deleted || del.ID != id {
		t.Errorf("delete = %+v", del)
	}

	err := runCLI(t, env, "-C", project, "show")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("show after delete error = %v, want NOT_FOUND", err)
	}

	stdout.Reset()
	if err := runCLI(t, env, "-C", project, "purge"); err != nil {
		t.Fatalf("purge error = %v", err)
	}
	var purged ops.PurgeOutput
	if err := json.Unmarshal(stdout.Bytes(), &purged); err != nil {
		t.Fatalf("purge output: %v", err)
	}
	if purged.Purged != 1 {
		t.Errorf("purged = %d, want 1", purged.Purged)
	}
}

func TestPurge_InvalidDuration(t *testing.T) {
	env, _, _ := testEnv(t)
	err := runCLI(t, env, "purge", "--all", "--older-than", "7h")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestReport(t *testing.T) {
	env, stdout, _ := testEnv(t)
	project := t.TempDir()
	seedRun(t, env, project)

	if err := runCLI(t, env, "-C", project, "report", "--format", "html", "--output", "latest.html"); err != nil {
		t.Fatalf("report error = %v", err)
	}
	var out ops.ExportOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("report output: %v", err)
	}
	if out.Path != filepath.Join(env.dir("reports"), "latest.html") {
		t.Errorf("path = %q", out.Path)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "<table>") || !strings.Contains(string(data), "App.tsx") {
		t.Errorf("report missing file table:\n%s", data)
	}

	err = runCLI(t, env, "-C", project, "report", "--output", "../escape.md")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("escaping report error = %v, want INVALID_REQUEST", err)
	}
}

func TestCacheRm(t *testing.T) {
	env, stdout, _ := testEnv(t)
	project := t.TempDir()

	cache, err := upgrade.LoadCache(cachePath(env, project, "0.72.0", "0.73.0"))
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}
	for _, path := range []string{"App.tsx", "package.json"} {
		if err := cache.Put(path, &llm.ChatResponse{Content: "x"}); err != nil {
			t.Fatalf("Put(%s) error = %v", path, err)
		}
	}

	if err := runCLI(t, env, "-C", project, "cache", "rm", "--from", "0.72.0", "--to", "0.73.0", "App.tsx", "missing.txt"); err != nil {
		t.Fatalf("cache rm error = %v", err)
	}
	var out struct {
		Removed   []string `json:"removed"`
		Remaining int      `json:"remaining"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("cache rm output: %v", err)
	}
	if len(out.Removed) != 1 || out.Removed[0] != "App.tsx" || out.Remaining != 1 {
		t.Errorf("cache rm = %+v, want App.tsx removed and 1 remaining", out)
	}
}

func TestDiffCommand(t *testing.T) {
	env, stdout, _ := testEnv(t)
	srv := fakeProvider(t, func([]byte) string { return "" })
	env.cfg.DiffBaseURL = srv.URL

	if err := runCLI(t, env, "diff", "--from", "0.72.0", "--to", "0.73.0", "--patch"); err != nil {
		t.Fatalf("diff error = %v", err)
	}
	var out ops.DiffFilesOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("diff output: %v", err)
	}
	if len(out.Files) != 1 || out.Files[0].Path != "App.tsx" {
		t.Fatalf("files = %+v, want App.tsx", out.Files)
	}
	if !strings.Contains(out.Files[0].Diff, "+new app") {
		t.Errorf("diff text = %q", out.Files[0].Diff)
	}

	err := runCLI(t, env, "diff", "--from", "latest", "--to", "0.73.0")
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("bad version error = %v, want INVALID_REQUEST", err)
	}
}

func TestUpgrade_EndToEnd(t *testing.T) {
	env, stdout, _ := testEnv(t)
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, "App.tsx"), []byte("old app\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := 0
	srv := fakeProvider(t, func([]byte) string {
		calls++
		return patchResponse("App.tsx", "new app\n")
	})
	env.cfg.DiffBaseURL = srv.URL
	env.cfg.APIBaseURL = srv.URL
	t.Setenv("OPENAI_API_KEY", "test-key")

	if err := runCLI(t, env, "-C", project, "upgrade", "--from", "0.72.0", "--to", "0.73.0", "--yes"); err != nil {
		t.Fatalf("upgrade error = %v", err)
	}
	var out upgradeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("upgrade output: %v\n%s", err, stdout.String())
	}
	if out.RunID == "" {
		t.Error("run_id is empty")
	}
	if out.Counts[diff.ChangeModified] != 1 {
		t.Errorf("counts = %v, want modified:1", out.Counts)
	}
	if out.PromptTokens != 1000 || out.CompletionTokens != 500 {
		t.Errorf("tokens = %d/%d, want 1000/500", out.PromptTokens, out.CompletionTokens)
	}

	data, err := os.ReadFile(filepath.Join(project, "App.tsx"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new app\n" {
		t.Errorf("App.tsx = %q, want upgraded contents", data)
	}

	// A second run replays the cached response.
	if err := os.WriteFile(filepath.Join(project, "App.tsx"), []byte("old app\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout.Reset()
	if err := runCLI(t, env, "-C", project, "upgrade", "--from", "0.72.0", "--to", "0.73.0", "--yes"); err != nil {
		t.Fatalf("second upgrade error = %v", err)
	}
	if calls != 1 {
		t.Errorf("model calls = %d, want 1", calls)
	}

	stdout.Reset()
	if err := runCLI(t, env, "-C", project, "history"); err != nil {
		t.Fatalf("history error = %v", err)
	}
	var list ops.ListOutput
	if err := json.Unmarshal(stdout.Bytes(), &list); err != nil {
		t.Fatalf("history output: %v", err)
	}
	if list.Pagination.Total != 2 {
		t.Errorf("recorded runs = %d, want 2", list.Pagination.Total)
	}
}

func TestUpgrade_RequiresAPIKey(t *testing.T) {
	env, _, _ := testEnv(t)
	srv := fakeProvider(t, func([]byte) string { return "" })
	env.cfg.DiffBaseURL = srv.URL
	t.Setenv("OPENAI_API_KEY", "")

	err := runCLI(t, env, "-C", t.TempDir(), "upgrade", "--from", "0.72.0", "--to", "0.73.0", "--yes")
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error = %v, want missing key", err)
	}
}

func TestChat_PipedInput(t *testing.T) {
	env, stdout, _ := testEnv(t)
	project := t.TempDir()

	var prompts []string
	srv := fakeProvider(t, func(body []byte) string {
		prompts = append(prompts, string(body))
		return textResponse("Bump the Gradle wrapper first.")
	})
	env.cfg.APIBaseURL = srv.URL
	t.Setenv("OPENAI_API_KEY", "test-key")
	env.stdin = strings.NewReader("/task upgrade gradle\n\nwhat should I change?\n/exit\nnever sent\n")

	if err := runCLI(t, env, "-C", project, "chat", "--description", "a bare React Native app"); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "Bump the Gradle wrapper first." {
		t.Errorf("answer = %q", got)
	}
	if len(prompts) != 1 {
		t.Fatalf("model calls = %d, want 1", len(prompts))
	}
	if !strings.Contains(prompts[0], "what should I change?") {
		t.Errorf("prompt missing user input: %s", prompts[0])
	}

	sc, err := session.Load(sessionPath(env, project), project)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sc.CurrentTask != "upgrade gradle" {
		t.Errorf("CurrentTask = %q, want upgrade gradle", sc.CurrentTask)
	}
	if sc.Project != "a bare React Native app" {
		t.Errorf("Project = %q", sc.Project)
	}
	if len(sc.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(sc.Messages))
	}
}

func TestChat_SavesStateWithoutTurn(t *testing.T) {
	env, _, _ := testEnv(t)
	project := t.TempDir()

	calls := 0
	srv := fakeProvider(t, func([]byte) string {
		calls++
		return textResponse("unused")
	})
	env.cfg.APIBaseURL = srv.URL
	t.Setenv("OPENAI_API_KEY", "test-key")
	env.stdin = strings.NewReader("/task migrate gradle\n/project an Expo app\n/exit\n")

	if err := runCLI(t, env, "-C", project, "chat"); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if calls != 0 {
		t.Errorf("model calls = %d, want 0", calls)
	}

	sc, err := session.Load(sessionPath(env, project), project)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sc.CurrentTask != "migrate gradle" {
		t.Errorf("CurrentTask = %q, want migrate gradle", sc.CurrentTask)
	}
	if sc.Project != "an Expo app" {
		t.Errorf("Project = %q, want an Expo app", sc.Project)
	}
	if len(sc.CurrentTaskEmbeddings) == 0 {
		t.Error("task embedding was not saved")
	}
}
