package ircd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCreatesChannelAndPromotesFirstJoinerToOperator(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})

	ch, ok := s.chans.get("#dev")
	require.True(t, ok)
	assert.True(t, ch.isMember(1))
	assert.True(t, ch.isOperator(1))
	assert.Contains(t, string(alice.outbox), "331") // no topic set
	assert.Contains(t, string(alice.outbox), "366") // end of names
}

func TestJoinInviteOnlyRejectsUninvited(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})
	ch, _ := s.chans.get("#dev")
	ch.InviteOnly = true

	s.handleJOIN(bob, &Message{Params: Params{"#dev"}})
	assert.Contains(t, string(bob.outbox), ErrInviteOnlyChan)
	assert.False(t, ch.isMember(2))
}

func TestInviteThenJoinSucceeds(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})
	ch, _ := s.chans.get("#dev")
	ch.InviteOnly = true

	s.handleINVITE(alice, &Message{Params: Params{"bob", "#dev"}})
	assert.True(t, ch.isInvited(2))

	s.handleJOIN(bob, &Message{Params: Params{"#dev"}})
	assert.True(t, ch.isMember(2))
	assert.False(t, ch.isInvited(2)) // consumed on join
}

func TestDisconnectPromotesSmallestHandle(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")
	carol := registerConn(s, 3, "carol")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})
	s.handleJOIN(bob, &Message{Params: Params{"#dev"}})
	s.handleJOIN(carol, &Message{Params: Params{"#dev"}})

	ch, _ := s.chans.get("#dev")
	require.True(t, ch.isOperator(1))

	s.Disconnect(1)

	assert.False(t, ch.isMember(1))
	assert.True(t, ch.isOperator(2)) // smallest remaining handle
	assert.Contains(t, string(bob.outbox), "MODE #dev +o bob")
}

func TestKickRemovesTargetAndDestroysEmptyChannel(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})
	s.handleJOIN(bob, &Message{Params: Params{"#dev"}})

	s.handleKICK(alice, &Message{Params: Params{"#dev", "bob", "bye"}})
	ch, ok := s.chans.get("#dev")
	require.True(t, ok)
	assert.False(t, ch.isMember(2))
	assert.Contains(t, string(bob.outbox), "KICK #dev bob :bye")

	s.handleKICK(alice, &Message{Params: Params{"#dev", "alice", ""}})
	_, ok = s.chans.get("#dev")
	assert.False(t, ok)
}

func TestPrivmsgToChannelExcludesSender(t *testing.T) {
	s := newTestServer(t)
	alice := registerConn(s, 1, "alice")
	bob := registerConn(s, 2, "bob")

	s.handleJOIN(alice, &Message{Params: Params{"#dev"}})
	s.handleJOIN(bob, &Message{Params: Params{"#dev"}})
	alice.outbox = nil
	bob.outbox = nil

	s.handlePRIVMSG(alice, &Message{Params: Params{"#dev", "hello"}})
	assert.NotContains(t, string(alice.outbox), "PRIVMSG")
	assert.Contains(t, string(bob.outbox), "PRIVMSG #dev :hello")
}

func TestNickCollision(t *testing.T) {
	s := newTestServer(t)
	registerConn(s, 1, "bob")
	intruder := newConnection(2)
	s.conns.add(intruder)

	s.handleNICK(intruder, &Message{Params: Params{"bob"}})
	assert.Contains(t, string(intruder.outbox), ErrNicknameInUse)
	assert.False(t, intruder.HasNick)
}
