package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	answerWindow time.Duration
	bind         string
	database     string
	jwtSecret    string
	points       int
	port         int
	prefix       string
	profile      bool
	schedule     []time.Duration
	tlsCert      string
	tlsKey       string
	tokenTTL     time.Duration
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret is required")
	}
	if c.answerWindow <= 0 {
		return fmt.Errorf("invalid answer window: %s", c.answerWindow)
	}
	if c.points <= 0 {
		return fmt.Errorf("invalid point award: %d", c.points)
	}
	if len(c.schedule) == 0 {
		return errors.New("snippet schedule must contain at least one duration")
	}
	for i := 1; i < len(c.schedule); i++ {
		if c.schedule[i] <= c.schedule[i-1] {
			return fmt.Errorf("snippet schedule must be strictly increasing: %v", c.schedule)
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) roundSettings() roundSettings {
	schedule := make([]time.Duration, len(c.schedule))
	copy(schedule, c.schedule)

	return roundSettings{
		schedule:     schedule,
		answerWindow: c.answerWindow,
		points:       c.points,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SONGQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "songquiz",
		Short:         "A real-time multiplayer music-guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.DurationVar(&cfg.answerWindow, "answer-window", 30*time.Second, "time players have to answer each attempt (env: SONGQUIZ_ANSWER_WINDOW)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SONGQUIZ_BIND)")
	fs.StringVar(&cfg.database, "database", "songquiz.db", "path to the sqlite database (env: SONGQUIZ_DATABASE)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "secret used to sign identity tokens (env: SONGQUIZ_JWT_SECRET)")
	fs.IntVar(&cfg.points, "points", 100, "points awarded for the first correct answer per song (env: SONGQUIZ_POINTS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SONGQUIZ_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SONGQUIZ_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SONGQUIZ_PROFILE)")
	fs.DurationSliceVar(&cfg.schedule, "snippet-schedule", []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}, "escalating snippet durations tried per song (env: SONGQUIZ_SNIPPET_SCHEDULE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SONGQUIZ_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SONGQUIZ_TLS_KEY)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued identity tokens (env: SONGQUIZ_TOKEN_TTL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SONGQUIZ_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SONGQUIZ_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("songquiz v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
