package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/torosent/volley/internal/admission"
	"github.com/torosent/volley/internal/threshold"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults applied before the config file and flags.
const (
	DefaultConcurrency         = 20
	DefaultTotal               = 100
	DefaultInterBatchDelay     = 50 * time.Millisecond
	DefaultTimeout             = 30 * time.Second
	DefaultRequestIDHeader     = "X-Request-Id"
	DefaultPushJob             = "volley"
	DefaultRefreshBeforeExpiry = 30 * time.Second
	AppIDHeader                = "X-App-Id"
	AppIDValue                 = "volley"

	highConcurrency = 500
)

type Config struct {
	TargetURL       string            `mapstructure:"target"`
	Method          string            `mapstructure:"method"`
	Headers         map[string]string `mapstructure:"headers"`
	Body            string            `mapstructure:"body"`
	BodyFile        string            `mapstructure:"body_file"`
	Concurrency     int               `mapstructure:"concurrency"`
	Total           int               `mapstructure:"total"`
	InterBatchDelay time.Duration     `mapstructure:"inter_batch_delay"`
	Pacing          admission.Mode    `mapstructure:"pacing"`
	PaceFrom        admission.Anchor  `mapstructure:"pace_from"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	Retries         int               `mapstructure:"retries"`
	RequestIDHeader string            `mapstructure:"request_id_header"`
	Snippet         SnippetConfig     `mapstructure:"snippet"`
	Feeder          FeederConfig      `mapstructure:"feeder"`
	Format          string            `mapstructure:"format"`
	Quiet           bool              `mapstructure:"quiet"`
	Dashboard       bool              `mapstructure:"dashboard"`
	LogErrors       bool              `mapstructure:"log_errors"`
	LogLevel        string            `mapstructure:"log_level"`
	LogJSON         bool              `mapstructure:"log_json"`
	SummaryFile     string            `mapstructure:"summary_file"`
	HTMLOutput      string            `mapstructure:"html_output"`
	Thresholds      []string          `mapstructure:"thresholds"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Auth            AuthConfig        `mapstructure:"auth"`
	ConfigFile      string            `mapstructure:"-"`
}

// SnippetConfig selects how the progress-line body snippet is extracted.
type SnippetConfig struct {
	Path  string `mapstructure:"path"`  // gjson path
	Regex string `mapstructure:"regex"` // first capture group, or whole match
}

type FeederConfig struct {
	Path string `mapstructure:"path"`
	Type string `mapstructure:"type"` // "csv" or "json"
}

// TracingConfig configures OpenTelemetry export and W3C propagation.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" (default) or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"`
	ServiceName string  `mapstructure:"service_name"`
}

// Enabled reports whether an exporter endpoint is configured, directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT, or propagation was forced on.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		return true
	}
	return t.Propagate != nil && *t.Propagate
}

// ShouldPropagate defaults to on whenever tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushGateway string `mapstructure:"push_gateway"`
	Job         string `mapstructure:"job"`
}

// AuthType selects how the Authorization header is produced.
type AuthType string

const (
	AuthNone                    AuthType = ""
	AuthStatic                  AuthType = "static"
	AuthOAuth2ClientCredentials AuthType = "oauth2_client_credentials"
)

// AuthConfig configures the bearer token attached to every request.
type AuthConfig struct {
	Type                AuthType      `mapstructure:"type"`
	StaticToken         string        `mapstructure:"static_token"`
	TokenURL            string        `mapstructure:"token_url"`
	ClientID            string        `mapstructure:"client_id"`
	ClientSecret        string        `mapstructure:"client_secret"`
	Scopes              []string      `mapstructure:"scopes"`
	RefreshBeforeExpiry time.Duration `mapstructure:"refresh_before_expiry"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	issues = append(issues, validateTarget(c.TargetURL)...)

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Total < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.InterBatchDelay < 0 {
		issues = append(issues, "inter_batch_delay must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}

	switch c.Pacing {
	case "", admission.ModeBatch, admission.ModeContinuous:
	default:
		issues = append(issues, fmt.Sprintf("pacing must be 'batch' or 'continuous', got %q", c.Pacing))
	}
	switch c.PaceFrom {
	case "", admission.AnchorStart, admission.AnchorEnd:
	default:
		issues = append(issues, fmt.Sprintf("pace_from must be 'start' or 'end', got %q", c.PaceFrom))
	}

	switch c.Format {
	case "", FormatText, FormatJSON, FormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("format must be 'text', 'json' or 'yaml', got %q", c.Format))
	}
	if c.Dashboard && c.Format != "" && c.Format != FormatText {
		issues = append(issues, "dashboard requires text format")
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	issues = append(issues, validateFeederConfig(c.Feeder)...)
	issues = append(issues, validateAuthConfig(c.Auth, c.Headers)...)

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

// Warnings lists settings that are valid but worth flagging to the operator.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Concurrency > highConcurrency {
		warnings = append(warnings, fmt.Sprintf("High concurrency configured (%d). Ensure you have authorization to test the target system.", c.Concurrency))
	}
	if c.Tracing.Insecure && strings.TrimSpace(c.Tracing.Endpoint) != "" {
		warnings = append(warnings, "Tracing exporter TLS is disabled (insecure: true).")
	}
	return warnings
}

func validateTarget(target string) []string {
	if strings.TrimSpace(target) == "" {
		return []string{"target is required (use --help for usage information)"}
	}
	u, err := url.Parse(target)
	if err != nil {
		return []string{fmt.Sprintf("target is not a valid URI: %v", err)}
	}
	var issues []string
	if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target scheme must be http or https, got %q", u.Scheme))
	}
	if u.Host == "" {
		issues = append(issues, "target must include a host")
	}
	return issues
}

func validateFeederConfig(feeder FeederConfig) []string {
	var issues []string
	if strings.TrimSpace(feeder.Path) == "" {
		return nil // No feeder configured
	}

	if strings.TrimSpace(feeder.Type) == "" {
		issues = append(issues, "feeder: type is required when path is specified")
	} else if feeder.Type != "csv" && feeder.Type != "json" {
		issues = append(issues, fmt.Sprintf("feeder: type must be 'csv' or 'json', got %q", feeder.Type))
	}

	return issues
}

func validateAuthConfig(a AuthConfig, headers map[string]string) []string {
	var issues []string
	switch a.Type {
	case AuthNone:
		return nil
	case AuthStatic:
		if strings.TrimSpace(a.StaticToken) == "" {
			issues = append(issues, "auth: static_token is required for static auth")
		}
	case AuthOAuth2ClientCredentials:
		if strings.TrimSpace(a.TokenURL) == "" {
			issues = append(issues, "auth: token_url is required for oauth2_client_credentials")
		}
		if strings.TrimSpace(a.ClientID) == "" {
			issues = append(issues, "auth: client_id is required for oauth2_client_credentials")
		}
	default:
		return []string{fmt.Sprintf("auth: type must be 'static' or 'oauth2_client_credentials', got %q", a.Type)}
	}
	if a.RefreshBeforeExpiry < 0 {
		issues = append(issues, "auth: refresh_before_expiry must be >= 0")
	}
	for k := range headers {
		if strings.EqualFold(k, "Authorization") {
			issues = append(issues, "auth: an explicit Authorization header conflicts with auth settings")
			break
		}
	}
	return issues
}
