package ircd

// maxUnfinishedLine is the largest an input buffer's unfinished tail (the
// bytes after the last newline, or the whole buffer if none) is allowed
// to grow before the connection is judged a protocol violation.
const maxUnfinishedLine = 510

// Connection tracks everything the server knows about one TCP peer. It
// is identified by its socket fd, which also doubles as the stable
// handle channels use to reference it.
type Connection struct {
	fd int

	Nick     string
	User     string
	Realname string

	PasswordAccepted bool
	HasNick          bool
	HasUser          bool
	Registered       bool

	// closing is set once a handler has decided this connection must be
	// severed. The event loop destroys it only after outbox drains.
	closing bool

	// peerClosed latches a zero-length read so that any lines already
	// buffered are still parsed before teardown.
	peerClosed bool

	inbox  []byte
	outbox []byte
}

func newConnection(fd int) *Connection {
	return &Connection{fd: fd}
}

// tryRegister promotes the connection to Registered once all three
// handshake flags are set. Registered, once true, never clears.
func (c *Connection) tryRegister() bool {
	if c.Registered {
		return false
	}
	if c.PasswordAccepted && c.HasNick && c.HasUser {
		c.Registered = true
		return true
	}
	return false
}

// WriteMessage renders m and appends it to the connection's outbox,
// satisfying MessageWriter.
func (c *Connection) WriteMessage(m *Message) {
	b, _ := m.MarshalText()
	c.outbox = append(c.outbox, b...)
}

// prefixString synthesizes the standard user prefix for a registered
// connection: "<nick>!<user-or-"user">@localhost".
func prefixString(nick, user string) string {
	if user == "" {
		user = "user"
	}
	return nick + "!" + user + "@" + serverHost
}

// ConnTable owns every live Connection, keyed by fd. NickRegistry also
// holds pointers to the connections that have claimed a nickname.
type ConnTable struct {
	conns map[int]*Connection
}

func newConnTable() *ConnTable {
	return &ConnTable{conns: make(map[int]*Connection)}
}

func (t *ConnTable) add(c *Connection) {
	t.conns[c.fd] = c
}

func (t *ConnTable) get(fd int) (*Connection, bool) {
	c, ok := t.conns[fd]
	return c, ok
}

func (t *ConnTable) remove(fd int) {
	delete(t.conns, fd)
}

func (t *ConnTable) all() []*Connection {
	out := make([]*Connection, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	return out
}
