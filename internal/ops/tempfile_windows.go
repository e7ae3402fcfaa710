//go:build windows

package ops

import (
	stderrors "errors"
	"os"

	"github.com/hpungsan/rnupgrade/internal/errors"
)

func createTemp(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if stderrors.Is(err, os.ErrExist) {
		return nil, errors.NewInvalidRequest("report temp file already exists")
	}
	return f, err
}
