package ircd

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Server owns every connection, channel, and nickname binding. It has no
// internal locking: only one goroutine — the event loop — may call its
// methods, which is what makes the single-threaded design safe.
type Server struct {
	Password string

	conns *ConnTable
	nicks *NickRegistry
	chans *ChannelStore

	log *logrus.Logger

	dispatch Handler
}

// NewServer constructs a Server that requires password for registration.
func NewServer(password string, log *logrus.Logger) *Server {
	if log == nil {
		log = newLogger()
	}
	s := &Server{
		Password: password,
		conns:    newConnTable(),
		nicks:    newNickRegistry(),
		chans:    newChannelStore(),
		log:      log,
	}
	s.dispatch = newDispatcher(s)
	return s
}

// Accept materializes a newly-accepted socket into the connection
// table with empty buffers.
func (s *Server) Accept(fd int) {
	s.conns.add(newConnection(fd))
	s.log.WithField("fd", fd).Info("accepted connection")
}

// Handle parses one complete line read from fd's connection and
// dispatches it. It is called once per line extracted by the event
// loop's frame reader.
func (s *Server) Handle(fd int, line string) {
	conn, ok := s.conns.get(fd)
	if !ok {
		return
	}
	m := parseLine(line)
	if m.Command == "" {
		return
	}
	s.dispatch.SpeakIRC(conn, m)
}

// Close marks conn for deferred close: the event loop will destroy it once
// its outbox has drained. If the outbox is already empty, the event loop
// destroys it as soon as the current handler returns.
func (s *Server) Close(conn *Connection) {
	conn.closing = true
}

// quitReason is the literal text broadcast to channel observers whenever
// a connection is torn down, regardless of the cause.
const quitReason = "Client Quit"

// Disconnect tears a connection down: it is removed from the channel
// store (broadcasting QUIT to every channel it belonged to), the nick
// registry, and the connection table. Called by the event loop once a
// closing connection's outbox has drained, or immediately on a fatal
// I/O error.
func (s *Server) Disconnect(fd int) {
	conn, ok := s.conns.get(fd)
	if !ok {
		return
	}

	for _, ch := range s.chans.channelsWithMember(fd) {
		s.broadcastToChannel(ch, fd, ":"+s.prefixFor(conn)+" QUIT :"+quitReason)
		ch.removeMember(fd)
		if ch.empty() {
			s.chans.destroy(ch.Name)
			continue
		}
		s.promoteIfNeeded(ch)
	}

	if conn.Nick != "" {
		s.nicks.release(conn.Nick)
	}
	s.conns.remove(fd)
	s.log.WithField("fd", fd).Info("disconnected")
}

// promoteIfNeeded auto-promotes the smallest-handle member to operator
// whenever a non-empty channel's operator set has gone empty, and
// broadcasts the resulting MODE +o line from the server prefix.
func (s *Server) promoteIfNeeded(ch *Channel) {
	if len(ch.Operators) > 0 || ch.empty() {
		return
	}
	fd, ok := ch.smallestMemberHandle()
	if !ok {
		return
	}
	ch.Operators[fd] = true
	if promoted, ok := s.conns.get(fd); ok {
		s.broadcastToChannel(ch, -1, ":"+serverName+" MODE "+ch.Name+" +o "+promoted.Nick)
	}
}

// prefixFor synthesizes conn's standard user prefix string.
func (s *Server) prefixFor(conn *Connection) string {
	return prefixString(conn.Nick, conn.User)
}

// sendNumeric writes a numeric reply to conn. target is the reply's
// first parameter (conventionally the recipient's own nickname, or "*"
// before one is known); any extra values are positional parameters, and
// the last argument in msg becomes the trailing parameter.
func (s *Server) sendNumeric(conn *Connection, code, target string, msg ...string) {
	conn.WriteMessage(numeric(code, target, msg...))
}

// broadcastToChannel writes line verbatim to every member of ch except
// excludeFd (pass -1 to exclude nobody).
func (s *Server) broadcastToChannel(ch *Channel, excludeFd int, line string) {
	for fd := range ch.Members {
		if fd == excludeFd {
			continue
		}
		if conn, ok := s.conns.get(fd); ok {
			conn.outbox = append(conn.outbox, line+"\r\n"...)
		}
	}
}

// recipientNick is conn's current nickname, or "*" before registration
// has assigned one — the conventional placeholder target for numeric
// replies sent before NICK completes.
func recipientNick(conn *Connection) string {
	if conn.Nick == "" {
		return "*"
	}
	return conn.Nick
}

func validChannelName(name string) bool {
	return strings.HasPrefix(name, "#") && len(name) >= 2
}
