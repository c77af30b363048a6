package posix

import "github.com/pkg/errors"

// ErrUnsupportedPlatform is returned where no raw tty is available.
var ErrUnsupportedPlatform = errors.New("posix console not supported on this platform")
