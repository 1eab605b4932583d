package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/volley/internal/admission"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volley",
		Short:         "Fire a fixed number of HTTP requests with bounded concurrency and batch pacing",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request
	flags.String("target", "", "Target URL to send requests to")
	flags.String("method", "GET", "HTTP method to use")
	flags.StringArray("header", nil, "Additional request header in key=value form (repeatable)")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")
	flags.String("request-id-header", DefaultRequestIDHeader, "Header carrying a unique ID per request (empty disables)")

	// Admission
	flags.IntP("concurrency", "c", DefaultConcurrency, "Maximum number of requests in flight")
	flags.IntP("total", "t", DefaultTotal, "Total number of requests to send")
	flags.Duration("inter-batch-delay", DefaultInterBatchDelay, "Minimum delay between batch starts (e.g. 50ms)")
	flags.Int("inter-batch-delay-ms", 0, "Inter-batch delay in milliseconds (overrides --inter-batch-delay)")
	flags.String("pacing", string(admission.ModeBatch), "Pacing mode: 'batch' or 'continuous'")
	flags.String("pace-from", string(admission.AnchorStart), "Measure the inter-batch delay from batch 'start' or batch 'end'")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Int("retries", 0, "Number of retries per request on failure, 429 or 5xx")

	// Snippet extraction
	flags.String("snippet-path", "", "JSON path (gjson syntax) extracted from response bodies for progress lines")
	flags.String("snippet-regex", "", "Regular expression extracted from response bodies for progress lines")

	// Feeder
	flags.String("feeder-path", "", "Path to CSV or JSON file containing data for per-request injection")
	flags.String("feeder-type", "", "Type of feeder file: 'csv' or 'json'")

	// Output
	flags.String("format", FormatText, "Summary format: 'text', 'json' or 'yaml'")
	flags.BoolP("quiet", "q", false, "Suppress per-request progress lines")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("summary-file", "", "Write the run summary to this file (.json, .yaml or text)")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.StringArray("threshold", nil, "Pass/fail thresholds (repeatable, e.g., 'latency:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (e.g. localhost:4317)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to sample (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Inject W3C trace context into requests (defaults to on when tracing is enabled)")
	flags.String("tracing-service-name", "", "Service name reported to the collector")

	// Metrics export
	flags.String("push-gateway", "", "Prometheus Pushgateway URL to push run metrics to")
	flags.String("push-job", DefaultPushJob, "Pushgateway job name")

	// Authentication
	flags.String("auth-type", "", "Authorization: 'static' or 'oauth2_client_credentials'")
	flags.String("auth-token", "", "Bearer token for static auth (or set VOLLEY_AUTH_TOKEN)")
	flags.String("auth-token-url", "", "OAuth2 token endpoint")
	flags.String("auth-client-id", "", "OAuth2 client id")
	flags.String("auth-client-secret", "", "OAuth2 client secret (or set VOLLEY_AUTH_CLIENT_SECRET)")
	flags.StringSlice("auth-scopes", nil, "OAuth2 scopes")
	flags.Duration("auth-refresh-before-expiry", DefaultRefreshBeforeExpiry, "Refresh OAuth2 tokens this long before they expire")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		cfg.Body = ""
	}
	if fs.Changed("request-id-header") {
		val, err := fs.GetString("request-id-header")
		if err != nil {
			return err
		}
		cfg.RequestIDHeader = strings.TrimSpace(val)
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("total") {
		val, err := fs.GetInt("total")
		if err != nil {
			return err
		}
		cfg.Total = val
	}
	if fs.Changed("inter-batch-delay") {
		val, err := fs.GetDuration("inter-batch-delay")
		if err != nil {
			return err
		}
		cfg.InterBatchDelay = val
	}
	if fs.Changed("inter-batch-delay-ms") {
		val, err := fs.GetInt("inter-batch-delay-ms")
		if err != nil {
			return err
		}
		cfg.InterBatchDelay = time.Duration(val) * time.Millisecond
	}
	if fs.Changed("pacing") {
		val, err := fs.GetString("pacing")
		if err != nil {
			return err
		}
		cfg.Pacing = admission.Mode(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("pace-from") {
		val, err := fs.GetString("pace-from")
		if err != nil {
			return err
		}
		cfg.PaceFrom = admission.Anchor(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = val
	}
	if fs.Changed("snippet-path") {
		val, err := fs.GetString("snippet-path")
		if err != nil {
			return err
		}
		cfg.Snippet.Path = strings.TrimSpace(val)
	}
	if fs.Changed("snippet-regex") {
		val, err := fs.GetString("snippet-regex")
		if err != nil {
			return err
		}
		cfg.Snippet.Regex = val
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("quiet") {
		val, err := fs.GetBool("quiet")
		if err != nil {
			return err
		}
		cfg.Quiet = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-json") {
		val, err := fs.GetBool("log-json")
		if err != nil {
			return err
		}
		cfg.LogJSON = val
	}
	if fs.Changed("summary-file") {
		val, err := fs.GetString("summary-file")
		if err != nil {
			return err
		}
		cfg.SummaryFile = strings.TrimSpace(val)
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	vals, err := fs.GetStringArray("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	if fs.Changed("feeder-path") {
		val, err := fs.GetString("feeder-path")
		if err != nil {
			return err
		}
		cfg.Feeder.Path = strings.TrimSpace(val)
	}
	if fs.Changed("feeder-type") {
		val, err := fs.GetString("feeder-type")
		if err != nil {
			return err
		}
		cfg.Feeder.Type = strings.TrimSpace(val)
	}

	if fs.Changed("threshold") {
		val, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	if err := applyTracingFlags(&cfg.Tracing, fs); err != nil {
		return err
	}

	if fs.Changed("push-gateway") {
		val, err := fs.GetString("push-gateway")
		if err != nil {
			return err
		}
		cfg.Metrics.PushGateway = strings.TrimSpace(val)
	}
	if fs.Changed("push-job") {
		val, err := fs.GetString("push-job")
		if err != nil {
			return err
		}
		cfg.Metrics.Job = strings.TrimSpace(val)
	}

	return applyAuthFlags(&cfg.Auth, fs)
}

func applyAuthFlags(a *AuthConfig, fs *pflag.FlagSet) error {
	if fs.Changed("auth-type") {
		val, err := fs.GetString("auth-type")
		if err != nil {
			return err
		}
		a.Type = AuthType(strings.ToLower(strings.TrimSpace(val)))
	}
	strs := []struct {
		name string
		dst  *string
	}{
		{"auth-token", &a.StaticToken},
		{"auth-token-url", &a.TokenURL},
		{"auth-client-id", &a.ClientID},
		{"auth-client-secret", &a.ClientSecret},
	}
	for _, s := range strs {
		if !fs.Changed(s.name) {
			continue
		}
		val, err := fs.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(val)
	}
	if fs.Changed("auth-scopes") {
		val, err := fs.GetStringSlice("auth-scopes")
		if err != nil {
			return err
		}
		a.Scopes = val
	}
	if fs.Changed("auth-refresh-before-expiry") {
		val, err := fs.GetDuration("auth-refresh-before-expiry")
		if err != nil {
			return err
		}
		a.RefreshBeforeExpiry = val
	}
	return nil
}

func applyTracingFlags(tc *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		tc.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		tc.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		tc.Propagate = &val
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	return nil
}
