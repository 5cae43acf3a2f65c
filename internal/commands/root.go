// Package commands implements the restcall command line tool.
package commands

import (
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-restkit/config"
	"github.com/gaborage/go-restkit/logger"
	"github.com/gaborage/go-restkit/observability"
	"github.com/gaborage/go-restkit/restclient"
)

const defaultClientName = "restcall"

// Options holds the flags shared by every request command.
type Options struct {
	ConfigPath string
	Client     string
	BaseURL    string
	Headers    []string
	Query      []string
	Timeout    time.Duration
	Retries    int
	Serializer string
	Include    bool
	Verbose    bool
}

// NewRootCommand creates the restcall command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "restcall",
		Short: "Call REST endpoints through configured go-restkit clients",
		Long: `restcall sends one request through a go-restkit client and prints the response body.

Clients are read from the YAML file given with --config and from RESTKIT_ environment
variables. Flags override the selected client's settings for this call only.`,
		Example: `  # GET against an absolute URL
  restcall get https://api.example.com/users/1

  # POST JSON through the "billing" client from config.yaml
  restcall -c config.yaml --client billing post /invoices -d '{"amount":10}'`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&opts.Client, "client", "", "Configured client to use")
	f.StringVar(&opts.BaseURL, "base-url", "", "Base URL for relative request URLs")
	f.StringArrayVarP(&opts.Headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	f.StringArrayVarP(&opts.Query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	f.DurationVar(&opts.Timeout, "timeout", 0, "Per-call timeout (0 keeps the configured value)")
	f.IntVar(&opts.Retries, "retries", -1, "Retries for transport errors and 5xx (negative keeps the configured value)")
	f.StringVar(&opts.Serializer, "serializer", "", "Body codec: json or cbor")
	f.BoolVarP(&opts.Include, "include", "i", false, "Print the response status line and headers")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log headers and payloads at debug level")

	cmd.AddCommand(
		newMethodCommand(opts, restclient.MethodGet),
		newMethodCommand(opts, restclient.MethodPost),
		newMethodCommand(opts, restclient.MethodPut),
		newMethodCommand(opts, restclient.MethodPatch),
		newMethodCommand(opts, restclient.MethodDelete),
		newMethodCommand(opts, restclient.MethodHead),
		newRequestCommand(opts),
		newConfigCommand(opts),
		NewVersionCommand(version),
	)

	return cmd
}

// session is one configured client plus the telemetry pipeline behind it.
type session struct {
	client   *restclient.Client
	provider observability.Provider
}

func (s *session) close() error {
	return observability.Shutdown(s.provider, observability.DefaultShutdownTimeout)
}

// open loads configuration and builds the selected client. Logs go to logOut so
// response bodies on stdout stay clean.
func (o *Options) open(logOut io.Writer) (*session, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	name, clientCfg, err := o.clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(logOut, level, cfg.Log.Pretty, nil)

	cfg.Observability.Output = logOut
	provider, err := observability.NewProvider(&cfg.Observability)
	if err != nil {
		return nil, err
	}

	b, err := restclient.BuilderFromConfig(name, clientCfg, log)
	if err != nil {
		_ = observability.Shutdown(provider, observability.DefaultShutdownTimeout)
		return nil, err
	}

	// Non-2xx bodies are printed before the command fails
	client, err := b.WithThrowOnFailure(false).Build()
	if err != nil {
		_ = observability.Shutdown(provider, observability.DefaultShutdownTimeout)
		return nil, err
	}

	return &session{client: client, provider: provider}, nil
}

// clientConfig selects the configured client and applies flag overrides. Without
// --client a single configured client is used, otherwise an empty configuration.
func (o *Options) clientConfig(cfg *config.Config) (string, config.ClientConfig, error) {
	name := o.Client
	var clientCfg config.ClientConfig

	switch names := cfg.ClientNames(); {
	case name != "":
		c, err := cfg.Client(name)
		if err != nil {
			return "", config.ClientConfig{}, err
		}
		clientCfg = c
	case len(names) == 1:
		name = names[0]
		clientCfg = cfg.Clients[name]
	default:
		name = defaultClientName
	}

	if o.BaseURL != "" {
		clientCfg.BaseURL = o.BaseURL
	}
	if o.Timeout > 0 {
		clientCfg.Timeout = o.Timeout
	}
	if o.Retries >= 0 {
		clientCfg.Retry.MaxRetries = o.Retries
	}
	if o.Serializer != "" {
		clientCfg.Serializer = o.Serializer
	}
	if o.Verbose {
		clientCfg.LogPayloads = true
	}

	return name, clientCfg, nil
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}
