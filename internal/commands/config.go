package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaborage/go-restkit/config"
	"github.com/gaborage/go-restkit/logger"
)

func newConfigCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "config [client]",
		Short: "Print the effective client configuration",
		Long: `Prints the client configuration after the YAML file, RESTKIT_ environment variables
and flags are applied. Sensitive header values are masked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Client = args[0]
			}
			return opts.printConfig(cmd.OutOrStdout())
		},
	}
}

func (o *Options) printConfig(w io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}

	clients := make(map[string]config.ClientConfig)
	if o.Client == "" && len(cfg.Clients) > 1 {
		for _, name := range cfg.ClientNames() {
			clients[name] = maskHeaders(cfg.Clients[name])
		}
	} else {
		name, clientCfg, err := o.clientConfig(cfg)
		if err != nil {
			return err
		}
		clients[name] = maskHeaders(clientCfg)
	}

	out, err := yaml.Marshal(map[string]any{"clients": clients})
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func maskHeaders(c config.ClientConfig) config.ClientConfig {
	if len(c.Headers) == 0 {
		return c
	}
	filter := logger.NewSensitiveDataFilter(nil)
	masked := make(map[string]string, len(c.Headers))
	for name, value := range c.Headers {
		masked[name] = filter.FilterString(name, value)
	}
	c.Headers = masked
	return c
}
