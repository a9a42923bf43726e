/*
Package ircd implements the core of a single-process IRC-compatible chat
server.

API

The pieces a caller (the event loop in eventloop.go) interacts with:

	// A Server owns every connection, channel, and nickname binding.
	// It has no internal locking: only one goroutine may call its
	// methods, which is what makes the single-threaded event loop safe.
	type Server struct {
		// ...
	}

	// Handle is called by the event loop once per complete line read
	// from a connection. It parses the line and dispatches it to the
	// matching verb handler.
	func (s *Server) Handle(fd int, line string)

Connection lifecycle

	- The event loop accepts a socket and calls Server.Accept(fd).
	- As bytes arrive, the event loop calls Server.Handle once per
	  complete line extracted from the connection's input buffer.
	- Handlers mutate the Server's connection table, nick registry, and
	  channel store, and enqueue outbound lines via Connection.WriteMessage
	  or Server.broadcastToChannel.
	- The event loop flushes each connection's output buffer when the
	  socket is writable, and destroys the connection via
	  Server.Disconnect once a deferred close's buffer has drained.
*/
package ircd
