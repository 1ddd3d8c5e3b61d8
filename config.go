// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (C) 2015-2020 The Lightning Network Developers

package bmpcrypt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/bmpcrypt/blockmode"
	"github.com/lightningnetwork/bmpcrypt/build"
	"github.com/lightningnetwork/bmpcrypt/keysource"
	"github.com/lightningnetwork/bmpcrypt/signal"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	defaultConfigFilename = "bmpcrypt.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "bmpcrypt.log"
	defaultLogLevel       = "info"
	defaultInputFile      = "plain.bmp"
	defaultOutDir         = "."
	defaultCipher         = "aes"
)

var (
	// DefaultBmpcryptDir is the default directory where bmpcrypt tries to
	// find its configuration file and store its logs.
	DefaultBmpcryptDir = btcutil.AppDataDir("bmpcrypt", false)

	// DefaultConfigFile is the default full path of bmpcrypt's
	// configuration file.
	DefaultConfigFile = filepath.Join(
		DefaultBmpcryptDir, defaultConfigFilename,
	)

	defaultLogDir = filepath.Join(DefaultBmpcryptDir, defaultLogDirname)

	// DefaultKey is the hex encoding of the fixed demonstration key
	// "abcdefghijklmnop".
	DefaultKey = hex.EncodeToString([]byte("abcdefghijklmnop"))

	// defaultModes are the modes run when none are requested.
	defaultModes = []string{
		blockmode.ModeECB.String(), blockmode.ModeCBC.String(),
	}
)

// Config defines the configuration options for bmpcrypt.
//
// See LoadConfig for further details regarding the configuration loading and
// parsing process.
//
//nolint:lll
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	BmpcryptDir string `long:"bmpcryptdir" description:"The base directory that contains bmpcrypt's configuration file and logs."`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir      string `long:"logdir" description:"Directory to log output."`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	Input  string `short:"i" long:"input" description:"The bitmap whose pixels are encrypted"`
	OutDir string `short:"o" long:"outdir" description:"Directory the encrypted bitmaps and envelopes are written to"`

	Key        string   `long:"key" description:"The 16-byte encryption key, hex encoded"`
	Passphrase string   `long:"passphrase" description:"Derive the key from this passphrase with scrypt instead of using --key"`
	IV         string   `long:"iv" description:"The 16-byte CBC initialization vector, hex encoded. A random one is drawn if unset"`
	Cipher     string   `long:"cipher" description:"The block permutation primitive" choice:"aes" choice:"twofish"`
	Modes      []string `long:"mode" description:"A block mode to run, may be repeated" choice:"ecb" choice:"cbc"`
	NoEnvelope bool     `long:"noenvelope" description:"Do not write the .tlv envelopes holding the full ciphertext"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`

	// The following fields are derived from the raw options above by
	// ValidateConfig. Only these should be used once the config is
	// loaded.

	// EncryptionKey is the decoded or derived key.
	EncryptionKey []byte

	// InitVector is the operator supplied IV, if any.
	InitVector fn.Option[blockmode.Block]

	// CipherType is the parsed --cipher option.
	CipherType blockmode.CipherType

	// ActiveModes is the parsed and de-duplicated list of modes to run.
	ActiveModes []blockmode.Mode

	// LogRotator is the file output of the log handler.
	LogRotator *build.RotatingLogWriter

	// SubLogMgr holds the subsystem loggers.
	SubLogMgr *build.SubLoggerManager
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		BmpcryptDir: DefaultBmpcryptDir,
		ConfigFile:  DefaultConfigFile,
		LogDir:      defaultLogDir,
		DebugLevel:  defaultLogLevel,
		Input:       defaultInputFile,
		OutDir:      defaultOutDir,
		Key:         DefaultKey,
		Cipher:      defaultCipher,
		LogConfig:   build.DefaultLogConfig(),
		InitVector:  fn.None[blockmode.Block](),
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(interceptor signal.Interceptor) (*Config, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.Parse(&preCfg); err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", build.Version(),
			"commit="+build.Commit)
		os.Exit(0)
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their bmpcryptdir, then we should assume they intend to use
	// the config file within it.
	configFileDir := CleanAndExpandPath(preCfg.BmpcryptDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	if configFileDir != DefaultBmpcryptDir {
		if configFilePath == DefaultConfigFile {
			configFilePath = filepath.Join(
				configFileDir, defaultConfigFilename,
			)
		}
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	if err := flags.IniParse(configFilePath, &cfg); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := flags.Parse(&cfg); err != nil {
		return nil, err
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg)
	if err != nil {
		return nil, err
	}

	// With the paths settled we can bring up logging.
	if err := cleanCfg.setupLogging(usageMessage, interceptor); err != nil {
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		bmpcLog.Debugf("%v", configFileError)
	}

	return cleanCfg, nil
}

// ValidateConfig check the given configuration to be sane. This makes sure no
// illegal values or combination of values are set. All file system paths are
// normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config) (*Config, error) {
	// If the provided bmpcrypt directory is not the default, we'll modify
	// the path to the log directory that lives within it.
	bmpcryptDir := CleanAndExpandPath(cfg.BmpcryptDir)
	if bmpcryptDir != DefaultBmpcryptDir && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(bmpcryptDir, defaultLogDirname)
	}

	funcName := "ValidateConfig"
	mkErr := func(format string, args ...interface{}) error {
		return fmt.Errorf(funcName+": "+format, args...)
	}

	// As soon as we're done parsing configuration options, ensure all
	// paths to directories and files are cleaned and expanded before
	// attempting to use them later on.
	cfg.BmpcryptDir = bmpcryptDir
	cfg.ConfigFile = CleanAndExpandPath(cfg.ConfigFile)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)
	cfg.Input = CleanAndExpandPath(cfg.Input)
	cfg.OutDir = CleanAndExpandPath(cfg.OutDir)

	if cfg.Input == "" {
		return nil, mkErr("an input bitmap must be set")
	}

	// Create the output directory if it doesn't already exist.
	if err := os.MkdirAll(cfg.OutDir, 0700); err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && os.IsExist(err) {
			link, lerr := os.Readlink(pathErr.Path)
			if lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, pathErr.Path, link)
			}
		}

		return nil, mkErr("failed to create output directory: %v",
			err)
	}

	if err := cfg.LogConfig.Validate(); err != nil {
		return nil, mkErr("error validating logging config: %w", err)
	}

	cipherType, err := blockmode.ParseCipherType(cfg.Cipher)
	if err != nil {
		return nil, mkErr("%w", err)
	}
	cfg.CipherType = cipherType

	// A passphrase takes precedence over the hex key, which always
	// carries the demonstration default.
	if cfg.Passphrase != "" {
		cfg.EncryptionKey, err = keysource.DeriveKey(
			[]byte(cfg.Passphrase), nil,
		)
	} else {
		cfg.EncryptionKey, err = keysource.ParseHex(
			cfg.Key, blockmode.KeySize,
		)
	}
	if err != nil {
		return nil, mkErr("invalid key: %w", err)
	}

	cfg.InitVector = fn.None[blockmode.Block]()
	if cfg.IV != "" {
		ivBytes, err := keysource.ParseHex(cfg.IV, blockmode.BlockSize)
		if err != nil {
			return nil, mkErr("invalid iv: %w", err)
		}

		iv, err := blockmode.BlockFromSlice(ivBytes)
		if err != nil {
			return nil, mkErr("invalid iv: %w", err)
		}
		cfg.InitVector = fn.Some(iv)
	}

	modes := cfg.Modes
	if len(modes) == 0 {
		modes = defaultModes
	}
	cfg.ActiveModes = nil
	seen := make(map[blockmode.Mode]struct{})
	for _, name := range modes {
		mode, err := blockmode.ParseMode(name)
		if err != nil {
			return nil, mkErr("%w", err)
		}

		if _, ok := seen[mode]; ok {
			continue
		}
		seen[mode] = struct{}{}
		cfg.ActiveModes = append(cfg.ActiveModes, mode)
	}

	return &cfg, nil
}

// setupLogging creates the log handler and the subsystem loggers, opens the
// rotating log file and applies the requested debug levels.
func (c *Config) setupLogging(usageMessage string,
	interceptor signal.Interceptor) error {

	c.LogRotator = build.NewRotatingLogWriter()
	c.SubLogMgr = build.NewSubLoggerManager(
		build.NewDefaultLogHandler(c.LogConfig, c.LogRotator),
	)

	SetupLoggers(c.SubLogMgr, interceptor)

	// Special show command to list supported subsystems and exit.
	if c.DebugLevel == "show" {
		fmt.Println("Supported subsystems",
			c.SubLogMgr.SupportedSubsystems())
		os.Exit(0)
	}

	if !c.LogConfig.File.Disable {
		err := c.LogRotator.InitLogRotator(
			c.LogConfig.File,
			filepath.Join(c.LogDir, defaultLogFilename),
		)
		if err != nil {
			return fmt.Errorf("log rotation setup failed: %w", err)
		}
	}

	// Parse, validate, and set debug log level(s).
	err := build.ParseAndSetDebugLevels(c.DebugLevel, c.SubLogMgr)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, usageMessage)
		return err
	}

	return nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
