package ircd

// handlePRIVMSG implements PRIVMSG <target> :<text>.
func (s *Server) handlePRIVMSG(conn *Connection, m *Message) {
	if len(m.Params) == 0 {
		s.sendNumeric(conn, ErrNoRecipient, recipientNick(conn), "No recipient given (PRIVMSG)")
		return
	}
	if len(m.Params) == 1 {
		s.sendNumeric(conn, ErrNoTextToSend, recipientNick(conn), "No text to send")
		return
	}
	target := m.Params.Get(1)
	text := m.Params.Get(2)
	if text == "" {
		s.sendNumeric(conn, ErrNoTextToSend, recipientNick(conn), "No text to send")
		return
	}

	line := ":" + s.prefixFor(conn) + " PRIVMSG " + target + " :" + text

	if validChannelName(target) {
		ch, ok := s.chans.get(target)
		if !ok {
			s.sendNumeric(conn, ErrNoSuchChannel, recipientNick(conn), target, "No such channel")
			return
		}
		if !ch.isMember(conn.fd) {
			s.sendNumeric(conn, ErrCannotSendToChan, recipientNick(conn), target, "Cannot send to channel")
			return
		}
		s.broadcastToChannel(ch, conn.fd, line)
		return
	}

	dest := s.nicks.lookup(target)
	if dest == nil {
		s.sendNumeric(conn, ErrNoSuchNick, recipientNick(conn), target, "No such nick/channel")
		return
	}
	dest.outbox = append(dest.outbox, line+"\r\n"...)
}
