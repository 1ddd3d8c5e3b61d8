package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/bmpcrypt"
	"github.com/lightningnetwork/bmpcrypt/signal"
)

func main() {
	// Hook interceptor for os signals.
	shutdownInterceptor, err := signal.Intercept()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Load the configuration, and parse any command line options. This
	// function will also set up logging properly.
	loadedConfig, err := bmpcrypt.LoadConfig(shutdownInterceptor)
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Modes that have not started yet are skipped once a shutdown is
	// requested.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-shutdownInterceptor.ShutdownChannel():
			cancel()
		case <-ctx.Done():
		}
	}()

	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	err = bmpcrypt.Main(ctx, loadedConfig)
	cancel()
	_ = loadedConfig.LogRotator.Close()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
