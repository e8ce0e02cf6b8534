package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays values from the process environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win over the file.
//
// Recognised variables:
//
//	HTTP_ADDRESS, APP_ENV, DATABASE_DSN, ADMIN_EMAIL, CLIENT_EMAIL,
//	IDENTITY_API_KEY, IDENTITY_BASE_URL, IDENTITY_TIMEOUT,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	BLOB_PUBLIC_BASE_URL, BLOB_PREFIX, UPLOAD_MAX_SIZE,
//	GALLERY_PAGE_SIZE, GALLERY_MAX_PAGE_SIZE, CORS_ORIGINS, LOG_LEVEL
func parseEnv(config *Config) error {
	_ = godotenv.Load()

	setString(&config.EndpointAddrHTTP, "HTTP_ADDRESS")
	setString(&config.Environment, "APP_ENV")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.AdminEmail, "ADMIN_EMAIL")
	setString(&config.ClientEmail, "CLIENT_EMAIL")
	setString(&config.IdentityAPIKey, "IDENTITY_API_KEY")
	setString(&config.IdentityBaseURL, "IDENTITY_BASE_URL")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&config.BlobPublicBaseURL, "BLOB_PUBLIC_BASE_URL")
	setString(&config.BlobPrefix, "BLOB_PREFIX")
	setString(&config.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("IDENTITY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid IDENTITY_TIMEOUT: %w", err)
		}
		config.IdentityTimeout = d
	}

	if v, ok := os.LookupEnv("UPLOAD_MAX_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
		}
		config.UploadMaxSize = n
	}

	if err := setInt(&config.DefaultPageSize, "GALLERY_PAGE_SIZE"); err != nil {
		return err
	}
	if err := setInt(&config.MaxPageSize, "GALLERY_MAX_PAGE_SIZE"); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
