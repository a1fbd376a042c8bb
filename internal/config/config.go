// Package config resolves runtime configuration for the registry server
// from the environment, using the declarations in pkg/regenv as the single
// source of defaults and documentation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agentskills/registry/pkg/regenv"
)

// Config is the fully-resolved configuration for a registry server process.
type Config struct {
	HTTPAddr        string
	APIPrefix       string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	MaxBundleSize       int64
	MaxDecompressedSize int64

	DatabaseURL          string
	DatabaseMaxOpenConns int
	MigrationsPath       string

	S3Endpoint       string
	S3Bucket         string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3ForcePathStyle bool

	IdentityClientID     string
	IdentityClientSecret string
	IdentityTokenURL     string

	LogLevel  string
	LogFormat string

	MetricsAddr string
}

// bindDefaults seeds viper with every registered Var's name and default so
// that Get() reflects the registry even for knobs not explicitly set in the
// environment.
func bindDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, rv := range regenv.VarDescriptions() {
		v.SetDefault(rv.Name(), rv.DefaultValue())
		_ = v.BindEnv(rv.Name())
	}
}

// Get resolves a Config from the current environment.
func Get() (*Config, error) {
	v := viper.New()
	bindDefaults(v)

	shutdownTimeout, err := parseDuration(v.GetString(regenv.ShutdownTimeout.Name()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", regenv.ShutdownTimeout.Name(), err)
	}

	cfg := &Config{
		HTTPAddr:        v.GetString(regenv.HTTPAddr.Name()),
		APIPrefix:       v.GetString(regenv.APIPrefix.Name()),
		CORSOrigins:     splitCommaList(v.GetString(regenv.CORSOrigins.Name())),
		ShutdownTimeout: shutdownTimeout,

		MaxBundleSize:       int64(v.GetInt(regenv.MaxBundleSize.Name())),
		MaxDecompressedSize: int64(v.GetInt(regenv.MaxDecompressedSize.Name())),

		DatabaseURL:          v.GetString(regenv.DatabaseURL.Name()),
		DatabaseMaxOpenConns: v.GetInt(regenv.DatabaseMaxOpenConns.Name()),
		MigrationsPath:       v.GetString(regenv.MigrationsPath.Name()),

		S3Endpoint:       v.GetString(regenv.S3Endpoint.Name()),
		S3Bucket:         v.GetString(regenv.S3Bucket.Name()),
		S3Region:         v.GetString(regenv.S3Region.Name()),
		S3AccessKey:      v.GetString(regenv.S3AccessKey.Name()),
		S3SecretKey:      v.GetString(regenv.S3SecretKey.Name()),
		S3ForcePathStyle: v.GetBool(regenv.S3ForcePathStyle.Name()),

		IdentityClientID:     v.GetString(regenv.IdentityClientID.Name()),
		IdentityClientSecret: v.GetString(regenv.IdentityClientSecret.Name()),
		IdentityTokenURL:     v.GetString(regenv.IdentityTokenURL.Name()),

		LogLevel:  v.GetString(regenv.LogLevel.Name()),
		LogFormat: v.GetString(regenv.LogFormat.Name()),

		MetricsAddr: v.GetString(regenv.MetricsAddr.Name()),
	}
	return cfg, nil
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
