package ircd

// NickRegistry is a bidirectional, injective mapping between nicknames
// and the connection that currently holds them. Nicknames are
// case-sensitive (see DESIGN.md).
type NickRegistry struct {
	byNick map[string]*Connection
}

func newNickRegistry() *NickRegistry {
	return &NickRegistry{byNick: make(map[string]*Connection)}
}

// lookup returns the connection currently holding nick, or nil.
func (r *NickRegistry) lookup(nick string) *Connection {
	return r.byNick[nick]
}

// claim binds nick to conn. The caller must have already verified the
// nick is free (or owned by conn itself).
func (r *NickRegistry) claim(nick string, conn *Connection) {
	r.byNick[nick] = conn
}

// release removes nick's binding, if any.
func (r *NickRegistry) release(nick string) {
	delete(r.byNick, nick)
}

// available reports whether nick is unclaimed, or claimed by conn
// itself (a no-op rename).
func (r *NickRegistry) available(nick string, conn *Connection) bool {
	holder, taken := r.byNick[nick]
	return !taken || holder == conn
}
