package ircd

import (
	"bytes"
	"strings"

	"golang.org/x/sys/unix"
)

// readChunk is the scratch buffer size used to drain a readable socket,
// matching the spec's 512-byte recv granularity.
const readChunk = 512

// EventLoop is the single-threaded, readiness-driven heart of the
// server: one epoll_wait per iteration, bounded to a 1-second timeout so
// the shutdown flag is observed promptly, followed by accept-then-read-
// then-write-then-teardown handling for every ready descriptor.
//
// No connection is ever touched from more than one goroutine: the loop
// itself never spawns one for per-connection work, which is what lets
// Server dispense with locking entirely.
type EventLoop struct {
	epfd     int
	listenFd int

	server *Server

	// writeInterest tracks which fds are currently registered for
	// EPOLLOUT, so flushWrite only reprograms epoll when the interest
	// set actually changes.
	writeInterest map[int]bool
}

// NewEventLoop creates the listening socket (non-blocking, SO_REUSEADDR,
// backlog SOMAXCONN, bound to all interfaces on port) and the epoll
// instance that will multiplex it alongside every accepted connection.
func NewEventLoop(server *Server, port int) (*EventLoop, error) {
	listenFd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(listenFd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(listenFd)
		return nil, err
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(listenFd, addr); err != nil {
		unix.Close(listenFd)
		return nil, err
	}
	if err := unix.Listen(listenFd, unix.SOMAXCONN); err != nil {
		unix.Close(listenFd)
		return nil, err
	}
	if err := unix.SetNonblock(listenFd, true); err != nil {
		unix.Close(listenFd)
		return nil, err
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listenFd)
		return nil, err
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(listenFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listenFd, &ev); err != nil {
		unix.Close(epfd)
		unix.Close(listenFd)
		return nil, err
	}

	return &EventLoop{
		epfd:          epfd,
		listenFd:      listenFd,
		server:        server,
		writeInterest: make(map[int]bool),
	}, nil
}

// Port returns the bound listening port, useful when NewEventLoop was
// given port 0 and the kernel chose an ephemeral one (as in tests).
func (l *EventLoop) Port() int {
	sa, err := unix.Getsockname(l.listenFd)
	if err != nil {
		return 0
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return in4.Port
	}
	return 0
}

// Close releases the listening socket and the epoll instance.
func (l *EventLoop) Close() {
	unix.Close(l.listenFd)
	unix.Close(l.epfd)
}

// Run drives the loop until stop reports true. stop is consulted once
// per wake, which happens at least once per second regardless of I/O
// activity.
func (l *EventLoop) Run(stop func() bool) error {
	events := make([]unix.EpollEvent, 64)
	for {
		if stop() {
			return nil
		}

		n, err := unix.EpollWait(l.epfd, events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == l.listenFd {
				l.acceptAll()
				continue
			}
			l.service(fd, events[i].Events)
		}

		// Handlers may have queued output on any connection (replies and
		// channel broadcasts alike); re-arm write interest for each of them
		// so flushWrite runs once its socket is writable.
		for _, c := range l.server.conns.all() {
			if len(c.outbox) > 0 {
				l.setWriteInterest(c.fd)
			}
		}
	}
}

// acceptAll accepts every pending connection on the listener until
// accept would block.
func (l *EventLoop) acceptAll() {
	for {
		connFd, _, err := unix.Accept(l.listenFd)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			l.server.log.WithError(err).Warn("accept failed")
			return
		}
		if err := unix.SetNonblock(connFd, true); err != nil {
			unix.Close(connFd)
			continue
		}
		ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT, Fd: int32(connFd)}
		if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, connFd, &ev); err != nil {
			unix.Close(connFd)
			continue
		}
		l.writeInterest[connFd] = true
		l.server.Accept(connFd)
	}
}

// service handles one ready connection fd per the spec's per-iteration
// order: read before write before hangup/error teardown, so buffered
// commands are never lost to a co-asserted hangup.
func (l *EventLoop) service(fd int, revents uint32) {
	if revents&unix.EPOLLIN != 0 {
		if l.readDrain(fd) {
			return
		}
	}

	if revents&unix.EPOLLOUT != 0 {
		if l.flushWrite(fd) {
			return
		}
	}

	if revents&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		l.destroy(fd)
	}
}

// readDrain recv()s into a 512-byte scratch buffer until would-block,
// zero-length (peer closed), or another error, then extracts and
// dispatches every complete line. It reports whether it destroyed the
// connection.
func (l *EventLoop) readDrain(fd int) bool {
	conn, ok := l.server.conns.get(fd)
	if !ok {
		return true
	}

	var buf [readChunk]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n > 0 {
			conn.inbox = append(conn.inbox, buf[:n]...)
		}
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			l.server.log.WithError(err).WithField("fd", fd).Warn("read failed")
			l.destroy(fd)
			return true
		}
		if n == 0 {
			conn.peerClosed = true
			break
		}
	}

	if l.extractLines(conn) {
		return true
	}

	if conn.peerClosed {
		l.destroy(fd)
		return true
	}
	return false
}

// extractLines pulls complete newline-terminated lines out of conn's
// inbox and dispatches them in order, enforcing the 510-byte unfinished-
// tail cap after each read. It stops (and reports destruction) as soon
// as a handler destroys the connection mid-loop.
func (l *EventLoop) extractLines(conn *Connection) bool {
	for {
		idx := bytes.IndexByte(conn.inbox, '\n')
		if idx < 0 {
			break
		}
		raw := string(conn.inbox[:idx])
		conn.inbox = conn.inbox[idx+1:]
		raw = strings.TrimSuffix(raw, "\r")

		if raw != "" {
			l.server.Handle(conn.fd, raw)
			if _, stillThere := l.server.conns.get(conn.fd); !stillThere {
				return true
			}
			if conn.closing && len(conn.outbox) == 0 {
				l.destroy(conn.fd)
				return true
			}
		}
	}

	if len(conn.inbox) > maxUnfinishedLine {
		l.server.log.WithField("fd", conn.fd).Warn("protocol violation: line too long")
		l.destroy(conn.fd)
		return true
	}
	return false
}

// flushWrite send()s the outbox until empty or would-block. When the
// buffer empties, write-interest is dropped from epoll; if the
// connection was marked closing, it is destroyed now (the deferred-close
// pattern). It reports whether it destroyed the connection.
func (l *EventLoop) flushWrite(fd int) bool {
	conn, ok := l.server.conns.get(fd)
	if !ok {
		return true
	}

	for len(conn.outbox) > 0 {
		n, err := unix.Write(fd, conn.outbox)
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			l.server.log.WithError(err).WithField("fd", fd).Warn("write failed")
			l.destroy(fd)
			return true
		}
		conn.outbox = conn.outbox[n:]
	}

	if len(conn.outbox) == 0 {
		l.clearWriteInterest(fd)
		if conn.closing {
			l.destroy(fd)
			return true
		}
	} else {
		l.setWriteInterest(fd)
	}
	return false
}

func (l *EventLoop) setWriteInterest(fd int) {
	if l.writeInterest[fd] {
		return
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT, Fd: int32(fd)}
	unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	l.writeInterest[fd] = true
}

func (l *EventLoop) clearWriteInterest(fd int) {
	if !l.writeInterest[fd] {
		return
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	l.writeInterest[fd] = false
}

// destroy removes fd from epoll and the OS, then tells the server to
// tear down its connection state. If the connection still had queued
// output, it is dropped. destroy is called once a deferred close's outbox
// has drained, on peer close or hangup/error, on a transport error, and
// on a protocol violation (an overlong unfinished line).
func (l *EventLoop) destroy(fd int) {
	unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	unix.Close(fd)
	delete(l.writeInterest, fd)
	l.server.Disconnect(fd)
}
