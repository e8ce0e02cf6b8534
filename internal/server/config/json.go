package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/inkstudio/internal/flagx"
	"github.com/dmitrijs2005/inkstudio/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	Environment       string         `json:"environment"`
	DatabaseDSN       string         `json:"database_dsn"`
	AdminEmail        string         `json:"admin_email"`
	ClientEmail       string         `json:"client_email"`
	IdentityAPIKey    string         `json:"identity_api_key"`
	IdentityBaseURL   string         `json:"identity_base_url"`
	IdentityTimeout   timex.Duration `json:"identity_timeout"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	BlobPublicBaseURL string         `json:"blob_public_base_url"`
	BlobPrefix        string         `json:"blob_prefix"`
	UploadMaxSize     int64          `json:"upload_max_size"`
	DefaultPageSize   int            `json:"default_page_size"`
	MaxPageSize       int            `json:"max_page_size"`
	CORSOrigins       []string       `json:"cors_origins"`
	LogLevel          string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $INKSTUDIO_CONFIG). Keys missing from the file keep their current value.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	fromJson(config, c)
	return nil
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:  c.EndpointAddrHTTP,
		Environment:       c.Environment,
		DatabaseDSN:       c.DatabaseDSN,
		AdminEmail:        c.AdminEmail,
		ClientEmail:       c.ClientEmail,
		IdentityAPIKey:    c.IdentityAPIKey,
		IdentityBaseURL:   c.IdentityBaseURL,
		IdentityTimeout:   timex.Duration{Duration: c.IdentityTimeout},
		S3RootUser:        c.S3RootUser,
		S3RootPassword:    c.S3RootPassword,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3BaseEndpoint:    c.S3BaseEndpoint,
		BlobPublicBaseURL: c.BlobPublicBaseURL,
		BlobPrefix:        c.BlobPrefix,
		UploadMaxSize:     c.UploadMaxSize,
		DefaultPageSize:   c.DefaultPageSize,
		MaxPageSize:       c.MaxPageSize,
		CORSOrigins:       c.CORSOrigins,
		LogLevel:          c.LogLevel,
	}
}

func fromJson(config *Config, c *JsonConfig) {
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.Environment = c.Environment
	config.DatabaseDSN = c.DatabaseDSN
	config.AdminEmail = c.AdminEmail
	config.ClientEmail = c.ClientEmail
	config.IdentityAPIKey = c.IdentityAPIKey
	config.IdentityBaseURL = c.IdentityBaseURL
	config.IdentityTimeout = c.IdentityTimeout.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.BlobPublicBaseURL = c.BlobPublicBaseURL
	config.BlobPrefix = c.BlobPrefix
	config.UploadMaxSize = c.UploadMaxSize
	config.DefaultPageSize = c.DefaultPageSize
	config.MaxPageSize = c.MaxPageSize
	config.CORSOrigins = c.CORSOrigins
	config.LogLevel = c.LogLevel
}
