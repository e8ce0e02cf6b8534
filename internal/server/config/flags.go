package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/inkstudio/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-l", "-env", "-admin-email", "-client-email", "-identity-key",
	"-u", "-p", "-b", "-g", "-e", "-public-url",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string             HTTP bind address (e.g., ":8080")
//	-d string             database DSN
//	-l string             log level
//	-env string           development or production
//	-admin-email string   primary admin address
//	-client-email string  secondary allowed address
//	-identity-key string  identity provider API key
//	-u string             S3 root user
//	-p string             S3 root password
//	-b string             S3 bucket name
//	-g string             S3 region
//	-e string             S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-public-url string    public base URL of stored images
//
// Arguments that are not listed above are filtered out with
// flagx.FilterArgs first, so the -c/-config flag does not collide.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.Environment, "env", config.Environment, "environment (development|production)")
	fs.StringVar(&config.AdminEmail, "admin-email", config.AdminEmail, "admin email")
	fs.StringVar(&config.ClientEmail, "client-email", config.ClientEmail, "secondary allowed email")
	fs.StringVar(&config.IdentityAPIKey, "identity-key", config.IdentityAPIKey, "identity provider API key")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.BlobPublicBaseURL, "public-url", config.BlobPublicBaseURL, "public base URL of stored images")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
