package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/rnupgrade/internal/errors"
	"github.com/hpungsan/rnupgrade/internal/report"
	"github.com/hpungsan/rnupgrade/internal/run"
)

// ExportInput contains parameters for the ExportReport operation.
type ExportInput struct {
	Selector
	Format string // "md" (default) or "html"
	Path   string // optional, default: <reportsDir>/<project>-<from>-<to>-<id>.<ext>
}

// ExportOutput contains the result of the ExportReport operation.
type ExportOutput struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
}

// ExportReport renders a run and writes it into reportsDir.
func ExportReport(ctx context.Context, database *sql.DB, reportsDir string, input ExportInput) (*ExportOutput, error) {
	format, err := report.ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}

	r, err := FetchRun(ctx, database, FetchInput{Selector: input.Selector})
	if err != nil {
		return nil, err
	}

	content, err := report.Render(r, format)
	if err != nil {
		return nil, err
	}

	path := input.Path
	if path == "" {
		path = filepath.Join(reportsDir, defaultReportName(r, format))
	}
	if err := ValidateReportPath(path, format.Ext(), reportsDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(reportsDir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create reports directory: %w", err))
	}

	if err := writeFileAtomic(path, content); err != nil {
		return nil, err
	}

	return &ExportOutput{
		ID:     r.ID,
		Path:   path,
		Format: string(format),
		Bytes:  len(content),
	}, nil
}

// defaultReportName builds "<project>-<from>-<to>-<id><ext>".
func defaultReportName(r *run.Run, format report.Format) string {
	name := fmt.Sprintf("%s-%s-%s-%s",
		SanitizeForFilename(filepath.Base(r.Project)), r.FromVersion, r.ToVersion, r.ID)
	return SanitizeForFilename(name) + format.Ext()
}

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so an existing report survives a failed write.
func writeFileAtomic(path string, content []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := createTemp(tempPath)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create report file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(content); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close report file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("report already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize report: %w", err))
	}

	success = true
	return nil
}
