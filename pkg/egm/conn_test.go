package egm

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopback(c *Conn) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: c.LocalAddr().Port}
}

func TestConn_SendReceive(t *testing.T) {
	server, err := Listen(0, nil, time.Second)
	require.NoError(t, err)
	defer server.Close()

	client, err := Listen(0, loopback(server), time.Second)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte{0x01, 0x02}))

	buf := make([]byte, MaxFrameSize)
	n, from, err := server.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, buf[:n])
	assert.Equal(t, client.LocalAddr().Port, from.Port)
}

func TestConn_ReceiveTimeout(t *testing.T) {
	c, err := Listen(0, nil, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, _, err = c.Receive(make([]byte, MaxFrameSize))
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestConn_Interrupt(t *testing.T) {
	c, err := Listen(0, nil, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := c.Receive(make([]byte, MaxFrameSize))
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	c.Interrupt()

	select {
	case err := <-errCh:
		assert.True(t, IsTimeout(err))
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Interrupt")
	}

	// Stays interrupted.
	start := time.Now()
	_, _, err = c.Receive(make([]byte, MaxFrameSize))
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestConn_Errors(t *testing.T) {
	c, err := Listen(0, nil, time.Second)
	require.NoError(t, err)

	assert.Error(t, c.Send([]byte{0x01}), "send without remote")

	_, err = Listen(c.LocalAddr().Port, nil, time.Second)
	assert.Error(t, err, "port already bound")

	require.NoError(t, c.Close())
	_, _, err = c.Receive(make([]byte, 16))
	assert.True(t, IsClosed(err))
	assert.False(t, IsTimeout(err))
}
