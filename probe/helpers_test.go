package probe_test

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPacketConn(t *testing.T) net.PacketConn {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	return pc
}

func hostPort(t *testing.T, pc net.PacketConn) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
