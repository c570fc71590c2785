// Package port picks free TCP ports for servers configured without one.
package port

import (
	"fmt"
	"net"

	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// AvailablePort asks the OS for a free port on the loopback interface.
// The port is released before returning, so another process may claim it first.
func AvailablePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, errclass.WrapAs(stacktrace.Wrap(err), errclass.Transient)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, stacktrace.Wrap(fmt.Errorf("unexpected listener address %T", l.Addr()))
	}
	return addr.Port, nil
}
