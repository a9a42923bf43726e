package ircd

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testServer spins up a real listening socket driven by the actual
// epoll-based EventLoop, so these tests exercise the genuine transport
// path rather than calling handlers directly.
type testServer struct {
	loop *EventLoop
	addr string
}

func startTestServer(t *testing.T, password string) *testServer {
	t.Helper()
	srv := NewServer(password, newLogger())
	loop, err := NewEventLoop(srv, 0)
	require.NoError(t, err)

	var stop int32
	go func() {
		_ = loop.Run(func() bool { return atomic.LoadInt32(&stop) != 0 })
	}()
	t.Cleanup(func() {
		atomic.StoreInt32(&stop, 1)
		loop.Close()
	})

	return &testServer{loop: loop, addr: "127.0.0.1:" + strconv.Itoa(loop.Port())}
}

func dialAndHandshake(t *testing.T, addr, password, nick string) (net.Conn, *bufio.Reader) {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	_, _ = conn.Write([]byte("PASS " + password + "\r\nNICK " + nick + "\r\nUSER u 0 * :Real Name\r\n"))
	return conn, r
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\r\n")
}

func TestEndToEndHandshake(t *testing.T) {
	s := startTestServer(t, "pw")
	conn, r := dialAndHandshake(t, s.addr, "pw", "alice")
	defer conn.Close()

	for _, code := range []string{"001", "002", "003", "004"} {
		line := readLine(t, r)
		require.Contains(t, line, code)
	}
}

func TestEndToEndNickCollision(t *testing.T) {
	s := startTestServer(t, "pw")
	c1, r1 := dialAndHandshake(t, s.addr, "pw", "bob")
	defer c1.Close()
	for range []int{1, 2, 3, 4} {
		readLine(t, r1)
	}

	c2, r2 := dialAndHandshake(t, s.addr, "pw", "bob")
	defer c2.Close()
	line := readLine(t, r2)
	require.Contains(t, line, "433")
	require.Contains(t, line, "bob")
}

func TestEndToEndChannelJoinAndPrivmsg(t *testing.T) {
	s := startTestServer(t, "pw")
	alice, ar := dialAndHandshake(t, s.addr, "pw", "alice")
	defer alice.Close()
	for range []int{1, 2, 3, 4} {
		readLine(t, ar)
	}

	_, _ = alice.Write([]byte("JOIN #dev\r\n"))
	join := readLine(t, ar)
	require.Contains(t, join, "JOIN #dev")
	topic := readLine(t, ar)
	require.Contains(t, topic, "331")
	names := readLine(t, ar)
	require.Contains(t, names, "353")
	end := readLine(t, ar)
	require.Contains(t, end, "366")

	bob, br := dialAndHandshake(t, s.addr, "pw", "bob")
	defer bob.Close()
	for range []int{1, 2, 3, 4} {
		readLine(t, br)
	}
	_, _ = bob.Write([]byte("JOIN #dev\r\n"))
	for range []int{1, 2, 3, 4} {
		readLine(t, br)
	}
	// alice sees bob's JOIN broadcast too
	aliceJoin := readLine(t, ar)
	require.Contains(t, aliceJoin, "JOIN #dev")

	_, _ = bob.Write([]byte("PRIVMSG #dev :hello alice\r\n"))
	msg := readLine(t, ar)
	require.Contains(t, msg, "PRIVMSG #dev :hello alice")
}
