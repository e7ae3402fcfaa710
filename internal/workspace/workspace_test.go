package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(contents), 0644))
	}
}

func TestDir_ReadWriteRemove(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root)

	require.False(t, d.Exists("android/build.gradle"))
	require.NoError(t, d.WriteFile("android/build.gradle", "buildscript {}"))
	require.True(t, d.Exists("android/build.gradle"))

	got, err := d.ReadFile("android/build.gradle")
	require.NoError(t, err)
	require.Equal(t, "buildscript {}", got)

	require.NoError(t, d.Remove("android/build.gradle"))
	require.False(t, d.Exists("android/build.gradle"))

	_, err = d.ReadFile("android/build.gradle")
	require.True(t, errors.Is(err, errors.ErrFileNotFound))
	require.True(t, errors.Is(d.Remove("android/build.gradle"), errors.ErrFileNotFound))
}

func TestDir_RejectsEscapes(t *testing.T) {
	d := NewDir(t.TempDir())

	for _, p := range []string{"../outside", "a/../../b", "/etc/passwd", ""} {
		_, err := d.ReadFile(p)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "path %q", p)
		require.False(t, d.Exists(p))
	}
}

func TestDir_ExistsIsFalseForDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ios/Podfile": "x"})
	require.False(t, NewDir(root).Exists("ios"))
}

func TestList(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":                   "{}",
		"App.tsx":                        "",
		"android/app/build.gradle":       "",
		"android/app/src/main/Main.java": "",
		"node_modules/react/index.js":    "",
		"ios/Pods/Foo/foo.h":             "",
		"ios/App/AppDelegate.mm":         "",
	})

	got, err := List(root, "", 0, []string{"node_modules", "Pods"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"App.tsx",
		"android/",
		"android/app/",
		"android/app/build.gradle",
		"android/app/src/",
		"android/app/src/main/",
		"android/app/src/main/Main.java",
		"ios/",
		"ios/App/",
		"ios/App/AppDelegate.mm",
		"package.json",
	}, got)
}

func TestList_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/b/c/d.txt": "",
		"top.txt":     "",
	})

	got, err := List(root, "", 2, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a/", "a/b/", "top.txt"}, got)
}

func TestList_Subdirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"android/gradle.properties": "",
		"ios/Podfile":               "",
	})

	got, err := List(root, "android/", 0, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"android/gradle.properties"}, got)

	_, err = List(root, "missing", 0, nil)
	require.Error(t, err)

	_, err = List(root, "../x", 0, nil)
	require.Error(t, err)
}

func TestList_GlobIgnore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/a.ts":      "",
		"src/a.test.ts": "",
	})

	got, err := List(root, "", 0, []string{"**/*.test.ts"})
	require.NoError(t, err)
	require.Equal(t, []string{"src/", "src/a.ts"}, got)
}
