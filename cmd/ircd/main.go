// Command ircd runs a single-process IRC-compatible chat server.
//
// Usage:
//
//	ircd <port> <password>
package main

import (
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ircd/ircd"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	port, password, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	srv := ircd.NewServer(password, log)

	loop, err := ircd.NewEventLoop(srv, port)
	if err != nil {
		log.WithError(err).Fatal("failed to start listening socket")
	}
	defer loop.Close()

	// SIGPIPE is ignored process-wide so a disappearing peer surfaces as
	// a write error rather than terminating the process.
	signal.Ignore(syscall.SIGPIPE)

	var stopping int32
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	go func() {
		<-sigs
		atomic.StoreInt32(&stopping, 1)
	}()

	log.WithField("port", port).Info("listening")
	if err := loop.Run(func() bool { return atomic.LoadInt32(&stopping) != 0 }); err != nil {
		log.WithError(err).Fatal("event loop exited with error")
	}
}

// parseArgs validates the two positional CLI arguments: a decimal TCP
// port in 1..=65535 and a non-empty password.
func parseArgs(args []string) (port int, password string, err error) {
	if len(args) != 2 {
		return 0, "", errUsage
	}
	for _, c := range args[0] {
		if c < '0' || c > '9' {
			return 0, "", errUsage
		}
	}
	p, convErr := strconv.Atoi(args[0])
	if convErr != nil || p < 1 || p > 65535 {
		return 0, "", errUsage
	}
	if args[1] == "" {
		return 0, "", errUsage
	}
	return p, args[1], nil
}

var errUsage = usageError{}

type usageError struct{}

func (usageError) Error() string {
	return "usage: ircd <port> <password>"
}
