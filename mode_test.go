package ircd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer("pw", newLogger())
}

func registerConn(s *Server, fd int, nick string) *Connection {
	c := newConnection(fd)
	s.conns.add(c)
	c.Nick = nick
	c.User = "u"
	s.nicks.claim(nick, c)
	c.PasswordAccepted, c.HasNick, c.HasUser = true, true, true
	c.Registered = true
	return c
}

func TestModeIdempotentToggle(t *testing.T) {
	s := newTestServer(t)
	conn := registerConn(s, 1, "alice")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true

	r1 := s.applyModeChanges(conn, ch, "+i", nil)
	require.True(t, r1.AnyChange)
	assert.Equal(t, "+i", r1.AppliedModes)

	r2 := s.applyModeChanges(conn, ch, "-i", nil)
	require.True(t, r2.AnyChange)
	assert.Equal(t, "-i", r2.AppliedModes)

	r3 := s.applyModeChanges(conn, ch, "-i", nil)
	assert.False(t, r3.AnyChange)
}

func TestModeGroupingSuppressesNoOpLetter(t *testing.T) {
	s := newTestServer(t)
	conn := registerConn(s, 1, "alice")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true

	r := s.applyModeChanges(conn, ch, "+i+t-k", nil)
	require.True(t, r.AnyChange)
	assert.Equal(t, "+it", r.AppliedModes)
}

func TestModeKeyRequiresParam(t *testing.T) {
	s := newTestServer(t)
	conn := registerConn(s, 1, "alice")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true

	r := s.applyModeChanges(conn, ch, "+k", nil)
	assert.False(t, r.AnyChange)
	assert.Contains(t, string(conn.outbox), ErrNeedMoreParams)
}

func TestModeLimitRejectsNonDigitButContinues(t *testing.T) {
	s := newTestServer(t)
	conn := registerConn(s, 1, "alice")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true

	r := s.applyModeChanges(conn, ch, "+li", []string{"-5"})
	require.True(t, r.AnyChange)
	assert.Equal(t, "+i", r.AppliedModes)
	assert.Contains(t, string(conn.outbox), ErrNeedMoreParams)
}

func TestModeOperatorGrantAndRevoke(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true
	ch.addMember(1)
	ch.addMember(2)

	r := s.applyModeChanges(alice, ch, "+o", []string{"bob"})
	require.True(t, r.AnyChange)
	assert.True(t, ch.isOperator(bob.fd))
	assert.Equal(t, []string{"bob"}, r.AppliedParams)

	r2 := s.applyModeChanges(alice, ch, "-o", []string{"bob"})
	require.True(t, r2.AnyChange)
	assert.False(t, ch.isOperator(bob.fd))
	assert.Equal(t, "-o", r2.AppliedModes)
	assert.Equal(t, []string{"bob"}, r2.AppliedParams)
}

func TestModeUnknownLetterReportsAndContinues(t *testing.T) {
	s := newTestServer(t)
	conn := registerConn(s, 1, "alice")
	ch, _ := s.chans.getOrCreate("#dev")
	ch.Operators[1] = true

	r := s.applyModeChanges(conn, ch, "zi", nil)
	require.True(t, r.AnyChange)
	assert.Equal(t, "+i", r.AppliedModes)
	assert.Contains(t, string(conn.outbox), ErrUnknownMode)
}

func TestParsePositiveInt(t *testing.T) {
	cases := []struct {
		in    string
		want  int
		valid bool
	}{
		{"0", 0, true},
		{"10", 10, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1a", 0, false},
	}
	for _, c := range cases {
		got, ok := parsePositiveInt(c.in)
		assert.Equal(t, c.valid, ok, c.in)
		if c.valid {
			assert.Equal(t, c.want, got, c.in)
		}
	}
}
