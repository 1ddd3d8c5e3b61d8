package bmpcrypt

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/lightningnetwork/bmpcrypt/build"
	"github.com/lightningnetwork/bmpcrypt/envelope"
	"github.com/lightningnetwork/bmpcrypt/keysource"
	"github.com/lightningnetwork/bmpcrypt/pixels"
	"github.com/lightningnetwork/bmpcrypt/signal"
)

// Subsystem is the logging code of the bmpcrypt tool itself.
const Subsystem = "BMPC"

// Loggers per subsystem. A single root handler is shared by all subsystem
// loggers, which are created and registered through the SubLoggerManager.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file. This must be performed early during application startup.
var bmpcLog = build.NewSubLogger(Subsystem, nil)

// SetupLoggers initializes all package-global logger variables. Critical log
// lines request a shutdown through the interceptor.
func SetupLoggers(root *build.SubLoggerManager,
	interceptor signal.Interceptor) {

	bmpcLog = build.NewShutdownLogger(
		root.GenSubLogger(Subsystem), interceptor.RequestShutdown,
	)

	AddSubLogger(
		root, signal.Subsystem, interceptor, signal.UseLogger,
	)
	AddSubLogger(
		root, blockmode.Subsystem, interceptor, blockmode.UseLogger,
	)
	AddSubLogger(
		root, pixels.Subsystem, interceptor, pixels.UseLogger,
	)
	AddSubLogger(
		root, envelope.Subsystem, interceptor, envelope.UseLogger,
	)
	AddSubLogger(
		root, keysource.Subsystem, interceptor, keysource.UseLogger,
	)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.SubLoggerManager, subsystem string,
	interceptor signal.Interceptor, useLoggers ...func(btclog.Logger)) {

	// genSubLogger will return a callback for creating a logger instance,
	// which we will give to the root logger.
	genSubLogger := func(tag string) btclog.Logger {
		return root.GenSubLogger(tag)
	}

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := build.NewSubLogger(subsystem, genSubLogger)
	SetSubLogger(logger, interceptor, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a
// sub system.
func SetSubLogger(logger btclog.Logger, interceptor signal.Interceptor,
	useLoggers ...func(btclog.Logger)) {

	shutdownLogger := build.NewShutdownLogger(
		logger, interceptor.RequestShutdown,
	)
	for _, useLogger := range useLoggers {
		useLogger(shutdownLogger)
	}
}
