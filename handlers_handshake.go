package ircd

// handleCAP implements the minimal CAP subset: LS replies with an empty
// capability list addressed to "*" (the handshake nick is not yet known
// at CAP time in general); END is silent; every other subcommand is
// ignored.
func (s *Server) handleCAP(conn *Connection, m *Message) {
	switch m.Params.Get(1) {
	case "LS":
		reply := NewMessage(CmdCap, "*", "LS", "")
		reply.Source = serverOrigin
		conn.WriteMessage(reply)
	case "END":
		// silent
	}
}

// handlePASS implements the PASS handshake verb.
func (s *Server) handlePASS(conn *Connection, m *Message) {
	if conn.Registered {
		return
	}
	p := m.Params.Get(1)
	if p == "" {
		s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "PASS", "Not enough parameters")
		return
	}
	if p != s.Password {
		s.sendNumeric(conn, ErrPasswdMismatch, recipientNick(conn), "Password incorrect")
		s.Close(conn)
		return
	}
	conn.PasswordAccepted = true
	s.finishRegistration(conn)
}

// handleNICK implements the NICK verb, which works both before and
// after registration.
func (s *Server) handleNICK(conn *Connection, m *Message) {
	n := m.Params.Get(1)
	if n == "" {
		s.sendNumeric(conn, ErrNoNicknameGiven, recipientNick(conn), "No nickname given")
		return
	}
	if !s.nicks.available(n, conn) {
		s.sendNumeric(conn, ErrNicknameInUse, recipientNick(conn), n, "Nickname is already in use")
		return
	}
	if conn.Nick != "" {
		s.nicks.release(conn.Nick)
	}
	s.nicks.claim(n, conn)
	conn.Nick = n
	conn.HasNick = true
	s.finishRegistration(conn)
}

// handleUSER implements the USER verb: "USER <user> <mode> <unused> :<realname>".
func (s *Server) handleUSER(conn *Connection, m *Message) {
	if conn.Registered {
		return
	}
	if len(m.Params) < 4 {
		s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "USER", "Not enough parameters")
		return
	}
	conn.User = m.Params.Get(1)
	conn.Realname = m.Params.Get(4)
	conn.HasUser = true
	s.finishRegistration(conn)
}

// finishRegistration promotes conn to Registered once all three
// handshake flags are set, and sends the welcome numerics.
func (s *Server) finishRegistration(conn *Connection) {
	if !conn.tryRegister() {
		return
	}
	nick := conn.Nick
	conn.WriteMessage(numeric(RplWelcome, nick, "Welcome to the Internet Relay Network "+s.prefixFor(conn)))
	conn.WriteMessage(numeric(RplYourHost, nick, "Your host is "+serverName+", running version "+serverVersion))
	conn.WriteMessage(numeric(RplCreated, nick, "This server was created today"))
	conn.WriteMessage(numeric(RplMyInfo, nick, serverName, serverVersion, "", ""))
}

// handlePING implements PING [<token>] -> PONG [:<token>].
func (s *Server) handlePING(conn *Connection, m *Message) {
	conn.WriteMessage(Pong(m.Params.Get(1)))
}

// handleQUIT implements QUIT [:<reason>]: the connection is marked for
// deferred close; channel teardown and the QUIT broadcast happen in
// Server.Disconnect once the event loop destroys it.
func (s *Server) handleQUIT(conn *Connection, m *Message) {
	s.Close(conn)
}
