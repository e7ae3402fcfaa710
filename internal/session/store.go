package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a persisted session. A missing file yields a fresh session.
// A legacy document whose root is an array of messages is upgraded to a
// session holding only those messages.
func Load(path, workingFolder string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(workingFolder), nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return New(workingFolder), nil
	}

	sc := New(workingFolder)
	if trimmed[0] == '[' {
		var msgs []Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("parse legacy session: %w", err)
		}
		sc.Messages = msgs
		return sc, nil
	}

	if err := json.Unmarshal(trimmed, sc); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sc.Files == nil {
		sc.Files = make(map[string]*FileEntry)
	}
	if sc.Messages == nil {
		sc.Messages = []Message{}
	}
	if sc.WorkingFolder == "" {
		sc.WorkingFolder = workingFolder
	}
	for p, f := range sc.Files {
		if f == nil {
			delete(sc.Files, p)
			continue
		}
		f.Path = p
	}
	return sc, nil
}

// Save writes the session as a single JSON document, replacing the previous
// one atomically.
func Save(path string, sc *Context) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
