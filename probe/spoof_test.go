package probe_test

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/probe"
)

// startHardenedResponder answers every datagram with a well-formed DNS
// response whose TXID matches the query's, simulating a server that
// cannot be spoofed at the transport layer.
func startHardenedResponder(t *testing.T) (string, int) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if n < 12 {
				continue
			}
			// A real server only answers queries (QR=0); it never replies
			// to something that already looks like a response, which is
			// exactly the shape of the spoof burst's forged datagrams.
			if buf[2]&0x80 != 0 {
				continue
			}

			resp := make([]byte, n)
			copy(resp, buf[:n])
			resp[2] = 0x81
			resp[3] = 0x80
			_, _ = pc.WriteTo(resp, addr)
		}
	}()

	host, portStr, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestRunSpoofAgainstHardenedResponderReportsBenign(t *testing.T) {
	host, port := startHardenedResponder(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := probe.RunSpoof(ctx, host, port, diaglog.NopSink{})
	require.NoError(t, err)
	assert.Equal(t, probe.SpoofBenign, result.Outcome)
	assert.Equal(t, result.QueryTXID, result.ResponseTXID)
}

func TestRunSpoofAgainstSilentTargetTimesOut(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	host, portStr, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	result, err := probe.RunSpoof(ctx, host, port, diaglog.NopSink{})
	require.NoError(t, err)
	assert.Equal(t, probe.SpoofTimedOut, result.Outcome)
}

func TestBuildForgedResponseLayout(t *testing.T) {
	question := []byte{0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0x03, 'c', 'o', 'm', 0x00, 0x00, 0x01, 0x00, 0x01}

	frame := probe.BuildForgedResponseForTest(0xBEEF, question)

	require.True(t, len(frame) > 12+len(question))
	assert.Equal(t, uint16(0xBEEF), binary.BigEndian.Uint16(frame[0:2]))
	assert.Equal(t, uint16(0x8180), binary.BigEndian.Uint16(frame[2:4]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(frame[4:6]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(frame[6:8]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(frame[8:10]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(frame[10:12]))

	answerStart := 12 + len(question)
	assert.Equal(t, uint16(0xC00C), binary.BigEndian.Uint16(frame[answerStart:answerStart+2]))
	assert.Equal(t, []byte{1, 2, 3, 4}, frame[answerStart+12:answerStart+16])
}
