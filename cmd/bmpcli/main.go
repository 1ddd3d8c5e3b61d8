package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/lightningnetwork/bmpcrypt/build"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[bmpcli] %v\n", err)
	os.Exit(1)
}

// readPassword reads a password from the terminal. This requires there to be
// an actual TTY so passing in a password from stdin won't work.
var readPassword = func(text string) ([]byte, error) {
	fmt.Print(text)

	// The variable syscall.Stdin is of a different type in the Windows API
	// that's why we need the explicit cast. And of course the linter
	// doesn't like it either.
	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Println()

	return pw, err
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bmpcli"
	app.Version = build.Version() + " commit=" + build.Commit
	app.Usage = "byte level companion to bmpcrypt for padding, block " +
		"mode encryption and envelope inspection"
	app.Commands = []cli.Command{
		padCommand,
		unpadCommand,
		encryptCommand,
		genKeyCommand,
		genIVCommand,
		deriveKeyCommand,
		inspectCommand,
		versionCommand,
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}
