package upgrade

import (
	"context"
	"strings"

	"github.com/hpungsan/rnupgrade/internal/diff"
	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/workspace"
)

// FileOps implements every OpKind against a project directory.
type FileOps struct {
	FS         workspace.FS
	Root       string
	ListDepth  int
	ListIgnore []string
}

// Dispatcher returns a dispatch table serving kinds.
func (f *FileOps) Dispatcher(kinds ...OpKind) (*Dispatcher, error) {
	all := map[OpKind]Handler{
		OpPatch:      f.patch,
		OpCreateFile: f.createFile,
		OpDeleteFile: f.deleteFile,
		OpReadFile:   f.readFile,
		OpListFiles:  f.listFiles,
	}
	handlers := make(map[OpKind]Handler, len(kinds))
	for _, k := range kinds {
		handlers[k] = all[k]
	}
	return NewDispatcher(handlers)
}

// patch replaces the whole file with the model's contents.
func (f *FileOps) patch(_ context.Context, op Op) (Result, error) {
	prev, err := f.FS.ReadFile(op.Path)
	if err != nil {
		return Result{}, err
	}
	if err := f.FS.WriteFile(op.Path, op.Contents); err != nil {
		return Result{}, err
	}
	return Result{
		Change: diff.ChangeModified,
		Undo:   func() error { return f.FS.WriteFile(op.Path, prev) },
	}, nil
}

func (f *FileOps) createFile(_ context.Context, op Op) (Result, error) {
	existed := f.FS.Exists(op.Path)
	var prev string
	if existed {
		var err error
		if prev, err = f.FS.ReadFile(op.Path); err != nil {
			return Result{}, err
		}
	}
	if err := f.FS.WriteFile(op.Path, op.Contents); err != nil {
		return Result{}, err
	}
	return Result{
		Change: diff.ChangeCreated,
		Undo: func() error {
			if existed {
				return f.FS.WriteFile(op.Path, prev)
			}
			return f.FS.Remove(op.Path)
		},
	}, nil
}

func (f *FileOps) deleteFile(_ context.Context, op Op) (Result, error) {
	prev, err := f.FS.ReadFile(op.Path)
	if err != nil {
		return Result{}, err
	}
	if err := f.FS.Remove(op.Path); err != nil {
		return Result{}, err
	}
	return Result{
		Change: diff.ChangeDeleted,
		Undo:   func() error { return f.FS.WriteFile(op.Path, prev) },
	}, nil
}

func (f *FileOps) readFile(_ context.Context, op Op) (Result, error) {
	contents, err := f.FS.ReadFile(op.Path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) {
			return Result{Output: "File not found: " + op.Path}, nil
		}
		return Result{}, err
	}
	return Result{Output: contents}, nil
}

func (f *FileOps) listFiles(_ context.Context, op Op) (Result, error) {
	entries, err := workspace.List(f.Root, op.Path, f.ListDepth, f.ListIgnore)
	if err != nil {
		return Result{Output: "Cannot list " + op.Path + ": " + err.Error()}, nil
	}
	if len(entries) == 0 {
		return Result{Output: "(empty)"}, nil
	}
	return Result{Output: strings.Join(entries, "\n")}, nil
}
