package ircd

import "strings"

// parameterLimit is the maximum number of parameters a message may contain.
// Handlers never construct more than this; incoming lines are never
// truncated to it, since the frame parser has no notion of a limit.
const parameterLimit = 15

// NewMessage constructs a new Message with cmd as the verb and args as the
// message parameters.
//
// Only the last argument may contain SPACE (ascii 32, %x20). This is a
// limitation defined by the wire protocol; including SPACE in any other
// argument will result in undefined behavior.
func NewMessage(cmd Command, args ...string) *Message {
	p := make(Params, len(args), parameterLimit)
	copy(p, args)
	return &Message{
		Command: cmd,
		Params:  p,
	}
}

// Message represents any incoming or outgoing IRC line.
//
// A message consists of three parts: an optional prefix, a verb, and
// parameters.
type Message struct {
	// Source is where the message originated from: the prefix portion of
	// a parsed incoming message, or the server's own identity (see
	// serverOrigin) for numerics, CAP replies, and PONGs the server
	// sends. Left zero for messages whose prefix is synthesized
	// out-of-band instead, such as channel broadcasts built from a raw
	// line in server.go.
	Source Prefix

	// Command is the IRC verb or numeric, such as PRIVMSG or "001".
	Command Command

	// Params contains all the message parameters. If a message included
	// a trailing component, it is appended without special treatment.
	Params Params
}

// MarshalText renders the message as a single wire line, including the
// trailing "\r\n". A non-empty Source is written as a leading ":<source> "
// prefix; messages built without one (the common case for client-directed
// constructors) are written bare.
func (m *Message) MarshalText() ([]byte, error) {
	var b strings.Builder
	if src := m.Source.String(); src != "" {
		b.WriteByte(':')
		b.WriteString(src)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command.String())
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || strings.ContainsRune(p, ' ') || p[0] == ':') {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	b.WriteString("\r\n")
	return []byte(b.String()), nil
}

// Command is an IRC command such as PRIVMSG, NOTICE, 001, etc.
//
// A command may also be known as the "verb" or "numeric".
type Command string

// String implements fmt.Stringer.
func (c Command) String() string {
	return string(c)
}

// is does a case-insensitive compare between two commands.
func (c Command) is(oc Command) bool {
	return strings.EqualFold(string(c), string(oc))
}

// Prefix is the optional message (line) prefix, which indicates the
// source of a parsed message.
//
// Example nickname-only prefix:
//
//	:alice MODE #dev +o bob
//
// Example full-address prefix:
//
//	:alice!a@localhost PRIVMSG #dev :hello
type Prefix struct {
	Nick Nickname
	User string
	Host string
}

// String implements fmt.Stringer.
func (p Prefix) String() string {
	switch {
	case p.Nick == "" && p.User == "" && p.Host == "":
		return ""
	case p.Nick == "" && p.User == "":
		return p.Host
	case p.User == "":
		return p.Nick.String()
	default:
		return p.Nick.String() + "!" + p.User + "@" + p.Host
	}
}

// Params contains the slice of arguments for a message.
//
// Prefer the Get method for reading params rather than accessing the
// slice directly.
type Params []string

// Get returns the nth parameter (starting at 1) from the parameter list,
// or "" if it does not exist.
func (p Params) Get(n int) string {
	if n > len(p) || n < 1 {
		return ""
	}
	return p[n-1]
}

// Nickname is a client's registered name on the server.
type Nickname string

// String implements fmt.Stringer.
func (n Nickname) String() string {
	return string(n)
}

// Is reports whether the nickname is byte-equal to other. Nicknames are
// case-sensitive in this server (see DESIGN.md).
func (n Nickname) Is(other string) bool {
	return string(n) == other
}

// MessageWriter is implemented by anything that can enqueue an outgoing
// IRC message for later delivery.
type MessageWriter interface {
	// WriteMessage renders m and appends it to the writer's outgoing
	// buffer. The written bytes always end in "\r\n".
	WriteMessage(m *Message)
}
