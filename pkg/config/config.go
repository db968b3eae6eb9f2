package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/game/constants"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/joho/godotenv"
)

const (
	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "WORDCHAIN_"
	// EnvFileVar names the variable holding the .env path
	EnvFileVar = EnvPrefix + "ENV_FILE"

	DefaultTCPPort    = 12345
	DefaultDictionary = "dictionary.txt"
	DefaultPlayLogURL = "file://game_log.json"
)

type Config struct {
	TCPPort        int
	WSPort         int
	APIPort        int
	Capacity       int
	DictionaryPath string
	PlayLogURL     string
	LogLevel       log.LogLevel
	LogFormat      log.Format
	Rules          game.Rules
	AcceptRate     float64
	AcceptBurst    int
	WriteTimeout   time.Duration
	// TLSCertFile and TLSKeyFile enable TLS on the WebSocket and API servers when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// Load reads the .env file if present, then WORDCHAIN_* variables, then args.
// Each layer overrides the previous one.
func Load(args []string) (*Config, error) {
	envFile := os.Getenv(EnvFileVar)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	env := &envReader{}
	rules := game.DefaultRules()
	var (
		tcpPort        = env.Int("TCP_PORT", DefaultTCPPort)
		wsPort         = env.Int("WS_PORT", 0)
		apiPort        = env.Int("API_PORT", 0)
		capacity       = env.Int("CAPACITY", constants.MaxPlayers)
		dictionaryPath = env.String("DICTIONARY", DefaultDictionary)
		playLogURL     = env.String("PLAY_LOG", DefaultPlayLogURL)
		logLevel       = env.String("LOG_LEVEL", "info")
		logFormat      = env.String("LOG_FORMAT", string(log.FormatJSON))
		turnTimeout    = env.Duration("TURN_TIMEOUT", rules.TurnTimeout)
		bonusTime      = env.Duration("BONUS_TIME", rules.BonusTime)
		bonusPoints    = env.Int("BONUS_POINTS", rules.BonusPoints)
		timeoutPenalty = env.Int("TIMEOUT_PENALTY", rules.TimeoutPenalty)
		invalidPenalty = env.Int("INVALID_PENALTY", rules.InvalidPenalty)
		winScore       = env.Int("WIN_SCORE", rules.WinScore)
		acceptRate     = env.Float("ACCEPT_RATE", 0)
		acceptBurst    = env.Int("ACCEPT_BURST", 1)
		writeTimeout   = env.Duration("WRITE_TIMEOUT", 5*time.Second)
		tlsCertFile    = env.String("TLS_CERT", "")
		tlsKeyFile     = env.String("TLS_KEY", "")
	)
	if env.err != nil {
		return nil, env.err
	}

	fset := flag.NewFlagSet("wordchain", flag.ContinueOnError)
	fset.IntVar(&tcpPort, "tcp-port", tcpPort, "TCP port to listen on")
	fset.IntVar(&wsPort, "ws-port", wsPort, "WebSocket port to listen on (0 disables)")
	fset.IntVar(&apiPort, "api-port", apiPort, "Status API port to listen on (0 disables)")
	fset.IntVar(&capacity, "capacity", capacity, "Maximum number of connected players")
	fset.StringVar(&dictionaryPath, "dictionary", dictionaryPath, "Path to the newline delimited word list")
	fset.StringVar(&playLogURL, "play-log", playLogURL, "Play log URL: file://, sqlite:// or postgres://")
	fset.StringVar(&logLevel, "log-level", logLevel, "Log level")
	fset.StringVar(&logFormat, "log-format", logFormat, "Log format: json or console")
	fset.DurationVar(&turnTimeout, "turn-timeout", turnTimeout, "Time each player has to answer")
	fset.DurationVar(&bonusTime, "bonus-time", bonusTime, "Answers within this time earn the bonus")
	fset.IntVar(&bonusPoints, "bonus-points", bonusPoints, "Bonus points for a fast answer")
	fset.IntVar(&timeoutPenalty, "timeout-penalty", timeoutPenalty, "Score change when a turn times out")
	fset.IntVar(&invalidPenalty, "invalid-penalty", invalidPenalty, "Score change for an invalid word")
	fset.IntVar(&winScore, "win-score", winScore, "Score that ends the match")
	fset.Float64Var(&acceptRate, "accept-rate", acceptRate, "New connections per second (0 disables limiting)")
	fset.IntVar(&acceptBurst, "accept-burst", acceptBurst, "Burst of new connections allowed above the rate")
	fset.DurationVar(&writeTimeout, "write-timeout", writeTimeout, "Deadline for each write to a client")
	fset.StringVar(&tlsCertFile, "tls-cert", tlsCertFile, "TLS certificate file for the WebSocket and API servers")
	fset.StringVar(&tlsKeyFile, "tls-key", tlsKeyFile, "TLS key file for the WebSocket and API servers")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	parsedLogLevel, err := log.ParseLogLevel(logLevel)
	if err != nil {
		return nil, err
	}
	parsedLogFormat, err := log.ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TCPPort:        tcpPort,
		WSPort:         wsPort,
		APIPort:        apiPort,
		Capacity:       capacity,
		DictionaryPath: dictionaryPath,
		PlayLogURL:     playLogURL,
		LogLevel:       parsedLogLevel,
		LogFormat:      parsedLogFormat,
		Rules: game.Rules{
			TurnTimeout:    turnTimeout,
			BonusTime:      bonusTime,
			BonusPoints:    bonusPoints,
			TimeoutPenalty: timeoutPenalty,
			InvalidPenalty: invalidPenalty,
			WinScore:       winScore,
		},
		AcceptRate:   acceptRate,
		AcceptBurst:  acceptBurst,
		WriteTimeout: writeTimeout,
		TLSCertFile:  tlsCertFile,
		TLSKeyFile:   tlsKeyFile,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	for name, port := range map[string]int{"tcp": c.TCPPort, "ws": c.WSPort, "api": c.APIPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid %s port: %d", name, port)
		}
	}
	if c.TCPPort == 0 {
		return errors.New("tcp port is required")
	}
	if c.Capacity < constants.MinPlayers {
		return fmt.Errorf("capacity must be at least %d, got %d", constants.MinPlayers, c.Capacity)
	}
	if c.DictionaryPath == "" {
		return errors.New("dictionary path is required")
	}
	if c.PlayLogURL == "" {
		return errors.New("play log URL is required")
	}
	if c.AcceptRate < 0 {
		return fmt.Errorf("accept rate must not be negative, got %v", c.AcceptRate)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls cert and key must be set together")
	}
	return c.Rules.Validate()
}

// TLSEnabled reports whether a certificate and key were configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// envReader reads prefixed variables and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, value, err)
	}
}

func (e *envReader) String(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return fallback
}

func (e *envReader) Int(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return n
}

func (e *envReader) Float(key string, fallback float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return f
}

func (e *envReader) Duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return d
}
