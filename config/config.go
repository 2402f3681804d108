package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

const envProduction = "production"

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Token *TokenConfig `json:"token" yaml:"token"`

	GoogleOAuth *GoogleOAuthConfig `json:"googleOAuth" yaml:"googleOAuth"`

	Fitness *FitnessConfig `json:"fitness" yaml:"fitness"`

	Handoff *HandoffConfig `json:"handoff" yaml:"handoff"`

	// TestAccounts configures the non-production login bypass.
	TestAccounts *TestAccountsConfig `json:"testAccounts" yaml:"testAccounts"`

	// QRCode configuration for handoff QR rendering.
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PostgresConfig defines the durable store connection.
type PostgresConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	UserName        string        `json:"userName" yaml:"userName"`
	Password        string        `json:"password" yaml:"password"`
	Database        string        `json:"database" yaml:"database"`
	SSLMode         string        `json:"sslMode" yaml:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// RedisConfig defines the shared cache holding leases and handoff tickets.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// TokenConfig defines the internal session token lifecycle.
type TokenConfig struct {
	// Secret is the single process-wide HMAC signing secret.
	Secret string `json:"secret" yaml:"secret"`
	// AccessTTL is the access token lifetime, minutes in practice.
	AccessTTL time.Duration `json:"accessTtl" yaml:"accessTtl"`
	// RefreshTTL is the refresh token lifetime, days in practice.
	RefreshTTL time.Duration `json:"refreshTtl" yaml:"refreshTtl"`
	// RenewalWindow before refresh expiry inside which the pair rotates.
	RenewalWindow time.Duration `json:"renewalWindow" yaml:"renewalWindow"`
	// ClockSkew is the leeway applied to expiry checks.
	ClockSkew time.Duration `json:"clockSkew" yaml:"clockSkew"`
}

// GoogleOAuthConfig defines the server-side OAuth2 client. The secret is
// required here because the authorization code grant and the Fitness token
// refresh both run on this service, not on the mobile client.
type GoogleOAuthConfig struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	// RedirectURI is the default redirect; the exchange request may override it.
	RedirectURI string `json:"redirectUri" yaml:"redirectUri"`
	// RequestTimeout bounds every call to Google's token endpoint.
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

// FitnessConfig tunes the credential refresher.
type FitnessConfig struct {
	// RefreshMargin is how close to expiry a credential counts as stale.
	RefreshMargin time.Duration `json:"refreshMargin" yaml:"refreshMargin"`
	// LeaseTTL bounds how long a crashed refresher can hold the lease.
	LeaseTTL time.Duration `json:"leaseTtl" yaml:"leaseTtl"`
	// LeaseWait is how long a losing caller waits for the holder to finish.
	LeaseWait time.Duration `json:"leaseWait" yaml:"leaseWait"`
	// LeasePollInterval is the re-check cadence while waiting.
	LeasePollInterval time.Duration `json:"leasePollInterval" yaml:"leasePollInterval"`
}

// HandoffConfig tunes the session handoff broker.
type HandoffConfig struct {
	// TicketTTL is the handoff ticket lifetime, two minutes by default.
	TicketTTL time.Duration `json:"ticketTtl" yaml:"ticketTtl"`
	// RedeemBaseURL is the absolute URL prefix encoded into the QR payload.
	RedeemBaseURL string `json:"redeemBaseUrl" yaml:"redeemBaseUrl"`
}

// TestAccount is one entry of the test login allow-list.
type TestAccount struct {
	Token   string `json:"token" yaml:"token"`
	Subject string `json:"subject" yaml:"subject"`
	Email   string `json:"email" yaml:"email"`
	Name    string `json:"name" yaml:"name"`
}

// TestAccountsConfig defines the non-production login bypass.
type TestAccountsConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Accounts []TestAccount `json:"accounts" yaml:"accounts"`
}

// QRCodeConfig defines QR code generation configuration.
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: GOOGLEOAUTH_CLIENTID -> googleOAuth.clientId (not googleoauth.clientid)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that must never reach a running process.
// A misconfigured test bypass is a startup error, not something to ignore.
func (c *Config) Validate() error {
	if c.IsProduction() && c.TestAccounts != nil && c.TestAccounts.Enabled {
		return errors.New("test account login must not be enabled in production")
	}

	if c.Token != nil && c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("token access TTL must be shorter than refresh TTL")
	}

	return nil
}

// IsProduction reports whether this configuration targets production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env.Env, envProduction)
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
