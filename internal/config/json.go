package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gpgcloud/gpgcloud/internal/flagx"
	"github.com/gpgcloud/gpgcloud/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify delays either as strings like "500ms"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN    *string `json:"database_dsn"`
	MetadataDriver *string `json:"metadata_driver"`
	DefaultBackend *string `json:"default_backend"`

	Recipient          *string `json:"recipient"`
	CipherSuite        *string `json:"cipher_suite"`
	PublicKeyringPath  *string `json:"public_keyring"`
	PrivateKeyringPath *string `json:"private_keyring"`
	AESKeyFile         *string `json:"aes_key_file"`
	Compress           *bool   `json:"compress"`

	RetryBaseDelay   *timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay    *timex.Duration `json:"retry_max_delay"`
	RetryMaxAttempts *int            `json:"retry_max_attempts"`
	CallTimeout      *timex.Duration `json:"call_timeout"`

	LogLevel *string `json:"log_level"`

	LocalDir *string `json:"local_dir"`

	S3Bucket          *string `json:"s3_bucket"`
	S3Region          *string `json:"s3_region"`
	S3AccessKey       *string `json:"s3_access_key"`
	S3SecretAccessKey *string `json:"s3_secret_access_key"`
	S3BaseEndpoint    *string `json:"s3_base_endpoint"`
	S3Prefix          *string `json:"s3_prefix"`

	SFTPHost         *string `json:"sftp_host"`
	SFTPPort         *int    `json:"sftp_port"`
	SFTPUser         *string `json:"sftp_user"`
	SFTPIdentityFile *string `json:"sftp_identity_file"`
	SFTPRemoteDir    *string `json:"sftp_remote_dir"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config command-line flags via
// flagx.JsonConfigFlags(); if neither is set, no JSON is loaded. Fields
// absent from the file keep their current values. Read or unmarshal errors
// panic (the caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.MetadataDriver, jc.MetadataDriver)
	setString(&cfg.DefaultBackend, jc.DefaultBackend)
	setString(&cfg.Recipient, jc.Recipient)
	setString(&cfg.CipherSuite, jc.CipherSuite)
	setString(&cfg.PublicKeyringPath, jc.PublicKeyringPath)
	setString(&cfg.PrivateKeyringPath, jc.PrivateKeyringPath)
	setString(&cfg.AESKeyFile, jc.AESKeyFile)
	if jc.Compress != nil {
		cfg.Compress = *jc.Compress
	}
	if jc.RetryBaseDelay != nil {
		cfg.RetryBaseDelay = time.Duration(jc.RetryBaseDelay.Duration)
	}
	if jc.RetryMaxDelay != nil {
		cfg.RetryMaxDelay = time.Duration(jc.RetryMaxDelay.Duration)
	}
	if jc.RetryMaxAttempts != nil {
		cfg.RetryMaxAttempts = *jc.RetryMaxAttempts
	}
	if jc.CallTimeout != nil {
		cfg.CallTimeout = time.Duration(jc.CallTimeout.Duration)
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LocalDir, jc.LocalDir)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretAccessKey, jc.S3SecretAccessKey)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	setString(&cfg.SFTPHost, jc.SFTPHost)
	if jc.SFTPPort != nil {
		cfg.SFTPPort = *jc.SFTPPort
	}
	setString(&cfg.SFTPUser, jc.SFTPUser)
	setString(&cfg.SFTPIdentityFile, jc.SFTPIdentityFile)
	setString(&cfg.SFTPRemoteDir, jc.SFTPRemoteDir)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
