// Package config loads the server configuration from flags, environment,
// an optional .env file and an optional config file, and keeps the GitLab
// token in protected memory until the session is built.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/gitlab"
	"github.com/awnumar/memguard"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// Viper keys. With the GITLAB prefix and the key replacer, "log.level"
// reads GITLAB_LOG_LEVEL and "token-type" reads GITLAB_TOKEN_TYPE.
const (
	KeyURL                  = "url"
	KeyToken                = "token"
	KeyTokenType            = "token-type"
	KeyTimeout              = "timeout"
	KeyInsecureTLS          = "insecure-tls"
	KeyCACert               = "ca-cert"
	KeyReadOnly             = "read-only"
	KeyToolsets             = "toolsets"
	KeyServerName           = "server-name"
	KeyLogLevel             = "log.level"
	KeyLogFormat            = "log.format"
	KeyLogFile              = "log.file"
	KeyEnableCommandLogging = "enable-command-logging"
	KeyExportTranslations   = "export-translations"
	KeyHTTPAddr             = "http.addr"
	KeyHTTPPort             = "http.port"
)

const (
	EnvPrefix = "GITLAB"
	// KeyringService is the OS keyring service the token is looked up
	// under. The keyring user is the GitLab host.
	KeyringService    = "gitlab-mr-review-mcp"
	DefaultServerName = "gitlab-mr-review-mcp"
	DefaultTimeout    = 30 * time.Second
	DefaultHTTPPort   = 8080
)

// Config is the validated server configuration.
type Config struct {
	APIURL      string
	Host        string
	TokenType   gitlab.TokenType
	TokenSource string
	Timeout     time.Duration
	InsecureTLS bool
	CACertPath  string

	ReadOnly   bool
	Toolsets   []string
	ServerName string

	LogLevel             string
	LogFormat            string
	LogFile              string
	EnableCommandLogging bool

	HTTPAddr string

	token *memguard.Enclave
}

// Init prepares v: environment lookup, defaults, the .env file in the
// working directory and an optional config.{json,toml,yaml} in "." or "/".
// Real environment variables always win over .env entries.
func Init(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyTokenType, string(gitlab.TokenTypePrivate))
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyToolsets, gitlab.DefaultTools)
	v.SetDefault(KeyServerName, DefaultServerName)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	if err := LoadDotEnv(".env"); err != nil {
		return err
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads the given .env files. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	apiURL, err := gitlab.NormalizeAPIURL(v.GetString(KeyURL))
	if err != nil {
		return nil, fmt.Errorf("invalid %s_URL: %w", EnvPrefix, err)
	}
	u, _ := url.Parse(apiURL)

	tokenType := gitlab.TokenType(strings.ToLower(strings.TrimSpace(v.GetString(KeyTokenType))))
	switch tokenType {
	case gitlab.TokenTypePrivate, gitlab.TokenTypeOAuth, gitlab.TokenTypeJob:
	default:
		return nil, fmt.Errorf("unknown token type %q (expected private, oauth or job)", tokenType)
	}

	timeout := v.GetDuration(KeyTimeout)
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be greater than zero, got %s", v.GetString(KeyTimeout))
	}

	logFormat := strings.ToLower(v.GetString(KeyLogFormat))
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", logFormat)
	}

	httpAddr, err := listenAddr(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:               apiURL,
		Host:                 u.Hostname(),
		TokenType:            tokenType,
		Timeout:              timeout,
		InsecureTLS:          v.GetBool(KeyInsecureTLS),
		CACertPath:           v.GetString(KeyCACert),
		ReadOnly:             v.GetBool(KeyReadOnly),
		Toolsets:             splitList(v.Get(KeyToolsets)),
		ServerName:           v.GetString(KeyServerName),
		LogLevel:             v.GetString(KeyLogLevel),
		LogFormat:            logFormat,
		LogFile:              v.GetString(KeyLogFile),
		EnableCommandLogging: v.GetBool(KeyEnableCommandLogging),
		HTTPAddr:             httpAddr,
	}
	if len(cfg.Toolsets) == 0 {
		cfg.Toolsets = gitlab.DefaultTools
	}

	token, source, err := lookupToken(v, cfg.Host)
	if err != nil {
		return nil, err
	}
	cfg.TokenSource = source
	cfg.token = memguard.NewEnclave([]byte(token))
	return cfg, nil
}

func lookupToken(v *viper.Viper, host string) (token, source string, err error) {
	if token = strings.TrimSpace(v.GetString(KeyToken)); token != "" {
		return token, "config", nil
	}

	token, err = keyring.Get(KeyringService, host)
	switch {
	case err == nil && strings.TrimSpace(token) != "":
		return strings.TrimSpace(token), "keyring", nil
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		return "", "", fmt.Errorf("GitLab token not set and keyring lookup failed: %w", err)
	}
	return "", "", fmt.Errorf("GitLab token is required: set %s_TOKEN, pass --gitlab-token, or store it in the OS keyring (service %q, user %q)",
		EnvPrefix, KeyringService, host)
}

// StoreToken saves token in the OS keyring for host.
func StoreToken(host, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(KeyringService, host, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// SessionConfig opens the token enclave and returns the adapter settings.
// The caller should not keep the result longer than it needs to build the
// client.
func (c *Config) SessionConfig() (gitlab.SessionConfig, error) {
	if c.token == nil {
		return gitlab.SessionConfig{}, errors.New("GitLab token is not available")
	}
	buf, err := c.token.Open()
	if err != nil {
		return gitlab.SessionConfig{}, fmt.Errorf("failed to open token enclave: %w", err)
	}
	defer buf.Destroy()

	return gitlab.SessionConfig{
		APIURL:      c.APIURL,
		Token:       strings.Clone(buf.String()),
		TokenType:   c.TokenType,
		Timeout:     c.Timeout,
		InsecureTLS: c.InsecureTLS,
		CACertPath:  c.CACertPath,
		UserAgent:   c.ServerName,
	}, nil
}

// listenAddr combines http.addr and http.port. An unset or zero port falls
// back to the PORT variable that container platforms set.
func listenAddr(v *viper.Viper) (string, error) {
	port := strings.TrimSpace(v.GetString(KeyHTTPPort))
	if port == "" || port == "0" {
		port = strings.TrimSpace(os.Getenv("PORT"))
	}
	if port == "" {
		port = strconv.Itoa(DefaultHTTPPort)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid HTTP port %q", port)
	}
	return net.JoinHostPort(v.GetString(KeyHTTPAddr), strconv.Itoa(n)), nil
}

// splitList accepts a string slice from a flag or a comma separated string
// from the environment.
func splitList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case []string:
		for _, s := range val {
			items = append(items, strings.Split(s, ",")...)
		}
	case []any:
		for _, s := range val {
			items = append(items, strings.Split(fmt.Sprint(s), ",")...)
		}
	case string:
		items = strings.Split(val, ",")
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
