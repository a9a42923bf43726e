package ircd

import "strconv"

// handleJOIN implements JOIN <name> [key].
func (s *Server) handleJOIN(conn *Connection, m *Message) {
	name := m.Params.Get(1)
	if !validChannelName(name) {
		s.sendNumeric(conn, ErrNoSuchChanName, recipientNick(conn), name, "Illegal channel name")
		return
	}
	key := m.Params.Get(2)

	ch, created := s.chans.getOrCreate(name)
	if !created {
		if ch.InviteOnly && !ch.isInvited(conn.fd) {
			s.sendNumeric(conn, ErrInviteOnlyChan, recipientNick(conn), name, "Cannot join channel (+i)")
			return
		}
		if ch.HasKey && ch.Key != key {
			s.sendNumeric(conn, ErrBadChannelKey, recipientNick(conn), name, "Cannot join channel (+k)")
			return
		}
		if ch.HasLimit && len(ch.Members) >= ch.Limit {
			s.sendNumeric(conn, ErrChannelIsFull, recipientNick(conn), name, "Cannot join channel (+l)")
			return
		}
	}

	ch.addMember(conn.fd)
	if created {
		ch.Operators[conn.fd] = true
	}

	joinLine := ":" + s.prefixFor(conn) + " JOIN " + name
	for fd := range ch.Members {
		if c, ok := s.conns.get(fd); ok {
			c.outbox = append(c.outbox, joinLine+"\r\n"...)
		}
	}

	if ch.Topic == "" {
		s.sendNumeric(conn, RplNoTopic, recipientNick(conn), name, "No topic is set")
	} else {
		s.sendNumeric(conn, RplTopic, recipientNick(conn), name, ch.Topic)
	}

	names := ""
	for fd := range ch.Members {
		c, ok := s.conns.get(fd)
		if !ok {
			continue
		}
		if names != "" {
			names += " "
		}
		if ch.isOperator(fd) {
			names += "@"
		}
		names += c.Nick
	}
	conn.WriteMessage(numeric(RplNamReply, recipientNick(conn), "=", name, names))
	s.sendNumeric(conn, RplEndOfNames, recipientNick(conn), name, "End of NAMES list")
}

// handleTOPIC implements TOPIC <name> [:<new>].
func (s *Server) handleTOPIC(conn *Connection, m *Message) {
	name := m.Params.Get(1)
	ch, ok := s.chans.get(name)
	if !ok || !ch.isMember(conn.fd) {
		s.sendNumeric(conn, ErrNotOnChannel, recipientNick(conn), name, "You're not on that channel")
		return
	}

	if len(m.Params) < 2 {
		if ch.Topic == "" {
			s.sendNumeric(conn, RplNoTopic, recipientNick(conn), name, "No topic is set")
		} else {
			s.sendNumeric(conn, RplTopic, recipientNick(conn), name, ch.Topic)
		}
		return
	}

	if ch.TopicOpsOnly && !ch.isOperator(conn.fd) {
		s.sendNumeric(conn, ErrChanOPrivsNeeded, recipientNick(conn), name, "You're not channel operator")
		return
	}

	ch.Topic = m.Params.Get(2)
	s.broadcastToChannel(ch, -1, ":"+s.prefixFor(conn)+" TOPIC "+name+" :"+ch.Topic)
}

// handleMODE implements both the bare-query and the mode-change forms of
// MODE for a channel target.
func (s *Server) handleMODE(conn *Connection, m *Message) {
	name := m.Params.Get(1)
	ch, ok := s.chans.get(name)
	if !ok {
		s.sendNumeric(conn, ErrNoSuchChannel, recipientNick(conn), name, "No such channel")
		return
	}

	if len(m.Params) < 2 {
		flags := "+"
		if ch.InviteOnly {
			flags += "i"
		}
		if ch.TopicOpsOnly {
			flags += "t"
		}
		if ch.HasLimit {
			flags += "l"
		}
		args := []string{name, flags}
		if ch.HasLimit {
			args = append(args, strconv.Itoa(ch.Limit))
		}
		conn.WriteMessage(numeric(RplChannelModeIs, recipientNick(conn), args...))
		return
	}

	if !ch.isOperator(conn.fd) {
		s.sendNumeric(conn, ErrChanOPrivsNeeded, recipientNick(conn), name, "You're not channel operator")
		return
	}

	modeString := m.Params.Get(2)
	var extra []string
	if len(m.Params) > 2 {
		extra = []string(m.Params[2:])
	}

	result := s.applyModeChanges(conn, ch, modeString, extra)
	if result.AnyChange {
		s.broadcastToChannel(ch, -1, result.BroadcastLine)
	}
}

// handleINVITE implements INVITE <nick> <#chan>.
func (s *Server) handleINVITE(conn *Connection, m *Message) {
	nick := m.Params.Get(1)
	name := m.Params.Get(2)

	ch, ok := s.chans.get(name)
	if !ok {
		s.sendNumeric(conn, ErrNoSuchChannel, recipientNick(conn), name, "No such channel")
		return
	}
	if !ch.isMember(conn.fd) {
		s.sendNumeric(conn, ErrNotOnChannel, recipientNick(conn), name, "You're not on that channel")
		return
	}
	if !ch.isOperator(conn.fd) {
		s.sendNumeric(conn, ErrChanOPrivsNeeded, recipientNick(conn), name, "You're not channel operator")
		return
	}
	target := s.nicks.lookup(nick)
	if target == nil {
		s.sendNumeric(conn, ErrNoSuchNick, recipientNick(conn), nick, "No such nick/channel")
		return
	}
	if ch.isMember(target.fd) {
		s.sendNumeric(conn, ErrUserOnChannel, recipientNick(conn), nick, name, "is already on channel")
		return
	}

	ch.Invited[target.fd] = true
	target.outbox = append(target.outbox, ":"+s.prefixFor(conn)+" INVITE "+nick+" "+name+"\r\n"...)
	s.sendNumeric(conn, RplInviting, recipientNick(conn), name, nick)
}

// handleKICK implements KICK <#chan> <nick> [:<reason>].
func (s *Server) handleKICK(conn *Connection, m *Message) {
	name := m.Params.Get(1)
	nick := m.Params.Get(2)
	reason := m.Params.Get(3)
	if reason == "" {
		reason = "Kicked"
	}

	ch, ok := s.chans.get(name)
	if !ok {
		s.sendNumeric(conn, ErrNoSuchChannel, recipientNick(conn), name, "No such channel")
		return
	}
	if !ch.isMember(conn.fd) {
		s.sendNumeric(conn, ErrNotOnChannel, recipientNick(conn), name, "You're not on that channel")
		return
	}
	if !ch.isOperator(conn.fd) {
		s.sendNumeric(conn, ErrChanOPrivsNeeded, recipientNick(conn), name, "You're not channel operator")
		return
	}
	target := s.nicks.lookup(nick)
	if target == nil {
		s.sendNumeric(conn, ErrNoSuchNick, recipientNick(conn), nick, "No such nick/channel")
		return
	}
	if !ch.isMember(target.fd) {
		s.sendNumeric(conn, ErrUserNotInChannel, recipientNick(conn), nick, name, "They aren't on that channel")
		return
	}

	s.broadcastToChannel(ch, -1, ":"+s.prefixFor(conn)+" KICK "+name+" "+nick+" :"+reason)
	ch.removeMember(target.fd)
	if ch.empty() {
		s.chans.destroy(name)
		return
	}
	s.promoteIfNeeded(ch)
}

// handleWHO implements WHO <mask> for channel masks only.
func (s *Server) handleWHO(conn *Connection, m *Message) {
	mask := m.Params.Get(1)
	if !validChannelName(mask) {
		s.sendNumeric(conn, RplEndOfWho, recipientNick(conn), mask, "End of WHO list")
		return
	}
	ch, ok := s.chans.get(mask)
	if !ok {
		s.sendNumeric(conn, RplEndOfWho, recipientNick(conn), mask, "End of WHO list")
		return
	}
	for fd := range ch.Members {
		c, ok := s.conns.get(fd)
		if !ok {
			continue
		}
		realname := c.Realname
		if realname == "" {
			realname = c.Nick
		}
		conn.WriteMessage(numeric(RplWhoReply, recipientNick(conn), mask, c.User, serverHost, serverName, c.Nick, "H", "0 "+realname))
	}
	s.sendNumeric(conn, RplEndOfWho, recipientNick(conn), mask, "End of WHO list")
}
