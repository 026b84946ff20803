//go:build linux || darwin

package ioworker

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen opens a TCP listener on addr with SO_REUSEPORT set, so that
// multiple I/O workers can each own an independent listening socket
// bound to the same port — the kernel load-balances accepts across them,
// which is the portable stand-in for the source's shared
// SO_REUSEPORT-equivalent listening fd (spec §4.9, §3 "Data flow").
func Listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", addr)
}
