//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

// createTemp creates path for writing. It fails if anything, a symlink
// included, already exists there.
func createTemp(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|syscall.O_NOFOLLOW, 0o600)
	if stderrors.Is(err, syscall.ELOOP) || stderrors.Is(err, os.ErrExist) {
		return nil, errors.NewInvalidRequest("report temp file already exists")
	}
	return f, err
}
