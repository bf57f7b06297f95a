// Command nih-sftp-server is an SFTP protocol version 3 server. It speaks
// SSH_FXP_* packets on stdin/stdout to an already-authenticated peer; it
// takes no flags, reads no environment variables, and resolves relative
// paths against its current working directory.
package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/pkg/errors"

	"github.com/jevinskie/nih-sftp-server/server"
)

func setupLogger() *slog.Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	})
	return slog.New(handler).With("app", "nih-sftp-server")
}

func main() {
	os.Exit(run())
}

func run() int {
	logger := setupLogger()
	logger.Info("starting")

	srv := server.New(os.Stdin, os.Stdout, logger)
	if err := srv.Serve(); err != nil {
		logger.Error("fatal", "err", errors.WithStack(err))
		return 1
	}

	logger.Info("stopping")
	return 0
}
