package netio

import (
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
)

func zapErr(err error) zap.Field {
	return zap.Error(err)
}

// isClosedErr reports whether err is the "use of closed network
// connection" error net returns after Close, so receive loops can exit
// cleanly instead of logging noise on shutdown.
func isClosedErr(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
