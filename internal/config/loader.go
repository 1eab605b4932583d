package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/volley/internal/admission"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Defaults returns a Config populated with every default value.
func Defaults() *Config {
	return &Config{
		Method:          http.MethodGet,
		Headers:         map[string]string{AppIDHeader: AppIDValue},
		Concurrency:     DefaultConcurrency,
		Total:           DefaultTotal,
		InterBatchDelay: DefaultInterBatchDelay,
		Pacing:          admission.ModeBatch,
		PaceFrom:        admission.AnchorStart,
		Timeout:         DefaultTimeout,
		RequestIDHeader: DefaultRequestIDHeader,
		Format:          FormatText,
		LogLevel:        "info",
		Tracing:         TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		Metrics:         MetricsConfig{Job: DefaultPushJob},
		Auth:            AuthConfig{RefreshBeforeExpiry: DefaultRefreshBeforeExpiry},
	}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Flags take precedence over the config file, which takes precedence over defaults.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)

	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	applyAuthEnv(&cfg.Auth)

	return cfg, nil
}

// Secrets may come from the environment so they stay out of shell history.
const (
	envAuthToken        = "VOLLEY_AUTH_TOKEN"
	envAuthClientSecret = "VOLLEY_AUTH_CLIENT_SECRET"
)

func applyAuthEnv(a *AuthConfig) {
	if a.StaticToken == "" {
		a.StaticToken = strings.TrimSpace(os.Getenv(envAuthToken))
	}
	if a.ClientSecret == "" {
		a.ClientSecret = strings.TrimSpace(os.Getenv(envAuthClientSecret))
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target", "url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "bodyfile", "body_file", "body-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("bodyFile: %w", err)
		}
		cfg.BodyFile = val
	}

	if raw, ok := lookupSetting(settings, "requestidheader", "request_id_header", "request-id-header"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("request_id_header: %w", err)
		}
		cfg.RequestIDHeader = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "total"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.Total = val
	}

	if raw, ok := lookupSetting(settings, "interbatchdelay", "inter_batch_delay", "inter-batch-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("inter_batch_delay: %w", err)
		}
		cfg.InterBatchDelay = dur
	}

	// The millisecond form is an integer, so it never goes through asDuration's
	// seconds interpretation.
	if raw, ok := lookupSetting(settings, "interbatchdelayms", "inter_batch_delay_ms", "inter-batch-delay-ms"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("inter_batch_delay_ms: %w", err)
		}
		cfg.InterBatchDelay = time.Duration(val) * time.Millisecond
	}

	if raw, ok := lookupSetting(settings, "pacing"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pacing: %w", err)
		}
		cfg.Pacing = admission.Mode(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "pacefrom", "pace_from", "pace-from"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pace_from: %w", err)
		}
		cfg.PaceFrom = admission.Anchor(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "retries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		cfg.Retries = val
	}

	if raw, ok := lookupSetting(settings, "snippet"); ok {
		snippet, err := parseSnippet(raw)
		if err != nil {
			return fmt.Errorf("snippet: %w", err)
		}
		cfg.Snippet = snippet
	}
	if raw, ok := lookupSetting(settings, "snippetpath", "snippet_path", "snippet-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("snippet_path: %w", err)
		}
		cfg.Snippet.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "snippetregex", "snippet_regex", "snippet-regex"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("snippet_regex: %w", err)
		}
		cfg.Snippet.Regex = val
	}

	if raw, ok := lookupSetting(settings, "feeder"); ok {
		feeder, err := parseFeeder(raw)
		if err != nil {
			return fmt.Errorf("feeder: %w", err)
		}
		cfg.Feeder = feeder
	}

	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		cfg.Format = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "quiet"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("quiet: %w", err)
		}
		cfg.Quiet = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "logjson", "log_json", "log-json"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("log_json: %w", err)
		}
		cfg.LogJSON = val
	}

	if raw, ok := lookupSetting(settings, "summaryfile", "summary_file", "summary-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("summary_file: %w", err)
		}
		cfg.SummaryFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "metrics"); ok {
		m, err := parseMetrics(raw, cfg.Metrics)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		cfg.Metrics = m
	}

	if raw, ok := lookupSetting(settings, "auth"); ok {
		a, err := parseAuth(raw, cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		cfg.Auth = a
	}

	return nil
}

func parseSnippet(value interface{}) (SnippetConfig, error) {
	if value == nil {
		return SnippetConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return SnippetConfig{}, err
	}
	var snippet SnippetConfig
	if raw, ok := lookupSetting(entry, "path", "jsonpath", "json_path"); ok {
		val, err := asString(raw)
		if err != nil {
			return SnippetConfig{}, fmt.Errorf("path: %w", err)
		}
		snippet.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "regex", "pattern"); ok {
		val, err := asString(raw)
		if err != nil {
			return SnippetConfig{}, fmt.Errorf("regex: %w", err)
		}
		snippet.Regex = val
	}
	return snippet, nil
}

func parseFeeder(value interface{}) (FeederConfig, error) {
	if value == nil {
		return FeederConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return FeederConfig{}, err
	}
	return buildFeederConfig(entry)
}

func buildFeederConfig(settings map[string]interface{}) (FeederConfig, error) {
	var feeder FeederConfig
	if raw, ok := lookupSetting(settings, "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return FeederConfig{}, fmt.Errorf("path: %w", err)
		}
		feeder.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return FeederConfig{}, fmt.Errorf("type: %w", err)
		}
		feeder.Type = strings.ToLower(strings.TrimSpace(val))
	}
	return feeder, nil
}

// applyTracingSettings overlays the file's tracing section on tc so that
// defaults for absent keys survive.
func applyTracingSettings(tc *TracingConfig, value interface{}) error {
	if value == nil {
		return nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = &val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	return nil
}

func parseMetrics(value interface{}, base MetricsConfig) (MetricsConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return MetricsConfig{}, err
	}
	m := base
	if raw, ok := lookupSetting(settings, "pushgateway", "push_gateway", "push-gateway"); ok {
		val, err := asString(raw)
		if err != nil {
			return MetricsConfig{}, fmt.Errorf("push_gateway: %w", err)
		}
		m.PushGateway = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "job"); ok {
		val, err := asString(raw)
		if err != nil {
			return MetricsConfig{}, fmt.Errorf("job: %w", err)
		}
		m.Job = strings.TrimSpace(val)
	}
	return m, nil
}

func parseAuth(value interface{}, base AuthConfig) (AuthConfig, error) {
	if value == nil {
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return AuthConfig{}, err
	}
	a := base
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("type: %w", err)
		}
		a.Type = AuthType(strings.ToLower(strings.TrimSpace(val)))
	}
	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"static_token", "statictoken", "token"}, &a.StaticToken},
		{[]string{"token_url", "tokenurl"}, &a.TokenURL},
		{[]string{"client_id", "clientid"}, &a.ClientID},
		{[]string{"client_secret", "clientsecret"}, &a.ClientSecret},
	}
	for _, s := range strs {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "scopes"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("scopes: %w", err)
		}
		a.Scopes = val
	}
	if raw, ok := lookupSetting(settings, "refresh_before_expiry", "refreshbeforeexpiry"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("refresh_before_expiry: %w", err)
		}
		a.RefreshBeforeExpiry = val
	}
	return a, nil
}
