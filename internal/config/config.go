package config

import "time"

// Config holds runtime settings for the gpgcloud tool.
//
// Fields cover the metadata store, the keyring, the configured storage
// backends and the retry policy applied to network calls.
type Config struct {
	// DatabaseDSN is the SQLite file holding object metadata. With
	// MetadataDriver "bolt" it is the bbolt file path instead.
	DatabaseDSN    string
	MetadataDriver string

	// DefaultBackend names the backend used when a command does not
	// select one explicitly.
	DefaultBackend string

	Recipient          string
	CipherSuite        string
	PublicKeyringPath  string
	PrivateKeyringPath string
	AESKeyFile         string
	Compress           bool

	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	CallTimeout      time.Duration

	LogLevel string

	LocalDir string

	S3Bucket          string
	S3Region          string
	S3AccessKey       string
	S3SecretAccessKey string
	S3BaseEndpoint    string
	S3Prefix          string

	SFTPHost         string
	SFTPPort         int
	SFTPUser         string
	SFTPIdentityFile string
	SFTPRemoteDir    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "gpgcloud.db"
	c.MetadataDriver = "sqlite"
	c.DefaultBackend = "local"
	c.CipherSuite = "openpgp"
	c.PublicKeyringPath = "pubring.gpg"
	c.PrivateKeyringPath = "secring.gpg"
	c.RetryBaseDelay = 500 * time.Millisecond
	c.RetryMaxDelay = 10 * time.Second
	c.RetryMaxAttempts = 5
	c.CallTimeout = time.Minute
	c.LogLevel = "info"
	c.LocalDir = "gpgcloud-store"
	c.S3Region = "us-east-1"
	c.SFTPPort = 22
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
