package ircd

import "strings"

// ModeResult is the outcome of applying a mode-change request to a
// channel: which letters actually changed, in canonical sign-grouped
// form, the parameters that went with them, and the broadcast line ready
// to fan out to the channel (valid only when AnyChange is true).
type ModeResult struct {
	AnyChange     bool
	AppliedModes  string
	AppliedParams []string
	BroadcastLine string
}

// applyModeChanges scans modeString left-to-right, applying each letter
// to ch. conn is the requester: numeric errors are written to it as they
// occur, and its prefix heads the broadcast line.
//
// Unknown letters, missing parameters, and invalid operator targets are
// reported as numeric replies to conn; scanning continues afterward
// except when a required parameter for k, l, or o is missing entirely,
// in which case the scan halts.
func (s *Server) applyModeChanges(conn *Connection, ch *Channel, modeString string, params []string) ModeResult {
	var result ModeResult
	var modes strings.Builder
	var appliedParams []string
	var emittedSign byte

	// emit records a letter that actually changed state, in scan order,
	// writing a fresh sign byte only when the applied sign differs from
	// the last one written — matching Mode.cpp's appendModeChar, which
	// interleaves '+'/'-' runs rather than bucketing them.
	emit := func(sign, letter byte, param string, hasParam bool) {
		if modes.Len() == 0 || emittedSign != sign {
			modes.WriteByte(sign)
			emittedSign = sign
		}
		modes.WriteByte(letter)
		if hasParam {
			appliedParams = append(appliedParams, param)
		}
	}

	sign := byte('+')
	paramIdx := 0
	nextParam := func() (string, bool) {
		if paramIdx >= len(params) {
			return "", false
		}
		p := params[paramIdx]
		paramIdx++
		return p, true
	}

scan:
	for i := 0; i < len(modeString); i++ {
		c := modeString[i]
		switch c {
		case '+', '-':
			sign = c
			continue
		}

		switch c {
		case 'i':
			if sign == '+' {
				if !ch.InviteOnly {
					ch.InviteOnly = true
					emit(sign, c, "", false)
				}
			} else {
				if ch.InviteOnly {
					ch.InviteOnly = false
					emit(sign, c, "", false)
				}
			}
		case 't':
			if sign == '+' {
				if !ch.TopicOpsOnly {
					ch.TopicOpsOnly = true
					emit(sign, c, "", false)
				}
			} else {
				if ch.TopicOpsOnly {
					ch.TopicOpsOnly = false
					emit(sign, c, "", false)
				}
			}
		case 'k':
			if sign == '+' {
				key, ok := nextParam()
				if !ok {
					s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "MODE", "Not enough parameters")
					break scan
				}
				if !ch.HasKey || ch.Key != key {
					ch.HasKey = true
					ch.Key = key
					emit(sign, c, key, true)
				}
			} else {
				if ch.HasKey {
					ch.HasKey = false
					ch.Key = ""
					emit(sign, c, "", false)
				}
			}
		case 'l':
			if sign == '+' {
				raw, ok := nextParam()
				if !ok {
					s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "MODE", "Not enough parameters")
					break scan
				}
				limit, ok := parsePositiveInt(raw)
				if !ok {
					s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "MODE", "Not enough parameters")
					continue scan
				}
				if !ch.HasLimit || ch.Limit != limit {
					ch.HasLimit = true
					ch.Limit = limit
					emit(sign, c, raw, true)
				}
			} else {
				if ch.HasLimit {
					ch.HasLimit = false
					ch.Limit = 0
					emit(sign, c, "", false)
				}
			}
		case 'o':
			nick, ok := nextParam()
			if !ok {
				s.sendNumeric(conn, ErrNeedMoreParams, recipientNick(conn), "MODE", "Not enough parameters")
				break scan
			}
			target := s.nicks.lookup(nick)
			if target == nil {
				s.sendNumeric(conn, ErrNoSuchNick, recipientNick(conn), nick, "No such nick/channel")
				continue scan
			}
			if !ch.isMember(target.fd) {
				s.sendNumeric(conn, ErrUserNotInChannel, recipientNick(conn), nick, ch.Name, "They aren't on that channel")
				continue scan
			}
			if sign == '+' {
				if !ch.isOperator(target.fd) {
					ch.Operators[target.fd] = true
					emit(sign, c, nick, true)
				}
			} else {
				if ch.isOperator(target.fd) {
					delete(ch.Operators, target.fd)
					emit(sign, c, nick, true)
				}
			}
		default:
			s.sendNumeric(conn, ErrUnknownMode, recipientNick(conn), string(c), "is unknown mode char to me for "+ch.Name)
		}
	}

	if modes.Len() == 0 {
		return result
	}

	result.AnyChange = true
	result.AppliedModes = modes.String()
	result.AppliedParams = appliedParams

	line := ":" + s.prefixFor(conn) + " MODE " + ch.Name + " " + result.AppliedModes
	for _, p := range result.AppliedParams {
		line += " " + p
	}
	result.BroadcastLine = line

	return result
}

// parsePositiveInt parses s as a non-negative decimal integer with no
// sign, rejecting empty strings, any non-digit byte, and overflow.
func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	var n int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if n > (1<<31-1-d)/10 {
			return 0, false // overflow
		}
		n = n*10 + d
	}
	return n, true
}
