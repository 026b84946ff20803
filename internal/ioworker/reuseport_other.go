//go:build !linux && !darwin

package ioworker

import "net"

// Listen falls back to a plain listener on platforms without
// SO_REUSEPORT; only the first I/O worker will successfully bind the
// configured port in that case.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
