package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/sink/internal/config"
	"github.com/wesleyorama2/sink/internal/output"
	"github.com/wesleyorama2/sink/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection server",
	Long: `Start the inspection server. Every received request is printed to the
terminal and recorded in an in-memory ring; the reply status, body, and delay
are configurable globally, per path prefix via a config file, or from flags.

Captured requests can be browsed while the server runs:

  curl localhost:8083/_sink/captures
  curl localhost:8083/_sink/captures/1?path=$.endpoint
  curl localhost:8083/_sink/stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if !output.ValidFormat(format) {
			return fmt.Errorf("unknown output format %q (want text or json)", format)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		noColor, _ := cmd.Flags().GetBool("no-color")
		if !noColor && !output.IsTerminal() {
			noColor = true
		}

		opts := []server.Option{
			server.WithFormatter(output.GetFormatter(output.OutputFormat(format), verbose, noColor)),
		}
		if quiet {
			opts = append(opts, server.WithQuiet())
		}

		s, err := server.New(cfg, opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf("Starting sink server on %s", cfg.Listen.Addr)
		if cfg.Listen.H2C {
			log.Printf("HTTP/2 cleartext (h2c) enabled")
		}
		if !cfg.DisableControl {
			log.Printf("Control endpoints under %s", server.ControlPrefix)
		}

		err = s.ListenAndServe(ctx)
		if err == nil {
			log.Printf("Server stopped")
		}
		return err
	},
}

// loadServeConfig builds the effective config: file first (when given),
// then flag overrides on top.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := applyServeFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	return cfg, nil
}

// applyServeFlags copies explicitly-set flags onto the config. Flags the user
// did not touch leave the file values alone.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("addr") {
		cfg.Listen.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("h2c") {
		cfg.Listen.H2C, _ = flags.GetBool("h2c")
	}
	if flags.Changed("status") {
		cfg.Response.Status, _ = flags.GetInt("status")
	}
	if flags.Changed("delay") {
		delay, _ := flags.GetDuration("delay")
		cfg.Response.Delay = config.Duration(delay)
	}
	if flags.Changed("response-body") {
		cfg.Response.Body, _ = flags.GetString("response-body")
	}
	if flags.Changed("echo") {
		cfg.Response.Echo, _ = flags.GetBool("echo")
	}
	if flags.Changed("capture") {
		cfg.Capture.Size, _ = flags.GetInt("capture")
	}
	if flags.Changed("body-limit") {
		cfg.Capture.BodyLimit, _ = flags.GetInt64("body-limit")
	}
	if flags.Changed("read-full") {
		cfg.Capture.ReadFull, _ = flags.GetBool("read-full")
	}
	if flags.Changed("no-control") {
		cfg.DisableControl, _ = flags.GetBool("no-control")
	}

	headers, _ := flags.GetStringArray("header")
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid header %q (want 'Key: Value')", header)
		}
		if cfg.Response.Headers == nil {
			cfg.Response.Headers = make(map[string]string)
		}
		cfg.Response.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return nil
}

// addServeFlags registers the serve flags. Split out so tests can build a
// throwaway command with the same flag set.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("addr", "a", config.DefaultAddr, "Listen address")
	cmd.Flags().StringP("config", "c", "", "Path to a YAML or JSON config file")
	cmd.Flags().IntP("status", "s", config.DefaultStatus, "Status code for inspected requests")
	cmd.Flags().DurationP("delay", "d", 0, "Artificial delay before responding")
	cmd.Flags().String("response-body", "", "Fixed response body")
	cmd.Flags().StringArrayP("header", "H", []string{}, "Response headers to include (can be used multiple times)")
	cmd.Flags().Bool("echo", false, "Reply with the received request body")
	cmd.Flags().Int("capture", config.DefaultCaptureSize, "Number of requests to keep in memory")
	cmd.Flags().Int64("body-limit", config.DefaultBodyLimit, "Maximum body bytes stored per request")
	cmd.Flags().Bool("read-full", false, "Drain request bodies instead of reading Content-Length bytes")
	cmd.Flags().Bool("h2c", false, "Serve HTTP/2 over cleartext TCP")
	cmd.Flags().Bool("no-control", false, "Disable the /_sink/ control endpoints")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress per-request output")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
}

func init() {
	addServeFlags(serveCmd)
}
