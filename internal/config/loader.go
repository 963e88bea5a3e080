// Package config loads the process configuration from the environment.
//
// LoadConfig reads an optional .env file, resolves NAME_SECRET_REF
// indirections outside local mode, decodes the environment with envconfig and
// validates the result. The process zone is forced to UTC; calendar dates use
// APP_TIMEZONE through Config.Location.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError reports which loading stage failed.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func configErr(t ConfigErrorType, msg string, err error) *ConfigError {
	return &ConfigError{Type: t, Message: msg, Err: err}
}

func (e *ConfigError) Error() string {
	msg := "[" + string(e.Type) + "] " + e.Message
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// secretRefSuffix marks a variable that points at a secret. For example,
// DATABASE_URL_SECRET_REF=/run/secrets/db_url resolves DATABASE_URL.
const secretRefSuffix = "_SECRET_REF"

// localEnv is the APP_ENV value that skips secret resolution.
const localEnv = "local"

// loaderDeps abstracts the process environment so tests can run the loader
// without touching globals they did not set.
type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
		dotenv:    func() error { return loadDotenv() },
	}
}

// loadDotenv loads the given files, or .env when none are named. Variables
// already present in the environment are left alone.
func loadDotenv(files ...string) error {
	return godotenv.Load(files...)
}

// LoadConfig loads and validates the configuration. provider may be nil in
// local mode or when no _SECRET_REF variables are set.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	if deps.dotenv != nil {
		// A missing .env is normal outside development.
		_ = deps.dotenv()
	}

	if env, _ := deps.lookupEnv("APP_ENV"); env != localEnv {
		if err := resolveSecretRefs(provider, deps); err != nil {
			return nil, err
		}
	}

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, configErr(ErrParsing, "cannot decode environment", err)
	}
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, configErr(ErrValidation, "invalid configuration", err)
	}
	if err := validateCrossField(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateCrossField checks rules the struct tags cannot express.
func validateCrossField(cfg *Config) error {
	if cfg.Risk.PastWeight+cfg.Risk.FutureWeight <= 0 {
		return configErr(ErrValidation, "RISK_PAST_WEIGHT and RISK_FUTURE_WEIGHT cannot both be zero", nil)
	}
	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return configErr(ErrValidation,
			fmt.Sprintf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.Database.MinConns, cfg.Database.MaxConns), nil)
	}
	return nil
}

// secretRef binds a target variable to the reference that resolves it.
type secretRef struct {
	target string
	ref    string
}

// pendingSecretRefs lists the _SECRET_REF variables whose target is unset.
// A target that is already set wins over its reference.
func pendingSecretRefs(deps loaderDeps) []secretRef {
	var refs []secretRef
	for _, entry := range deps.environ() {
		key, ref, ok := strings.Cut(entry, "=")
		if !ok || ref == "" || !strings.HasSuffix(key, secretRefSuffix) {
			continue
		}
		target := strings.TrimSuffix(key, secretRefSuffix)
		if _, set := deps.lookupEnv(target); set {
			continue
		}
		refs = append(refs, secretRef{target: target, ref: ref})
	}
	return refs
}

// resolveSecretRefs resolves every pending reference in one provider call
// and exports the values under their target names. Any reference the
// provider cannot find fails the load.
func resolveSecretRefs(provider SecretProvider, deps loaderDeps) error {
	pending := pendingSecretRefs(deps)
	if len(pending) == 0 {
		return nil
	}

	targets := make([]string, len(pending))
	keys := make([]string, len(pending))
	for i, p := range pending {
		targets[i] = p.target
		keys[i] = p.ref
	}
	if provider == nil {
		return configErr(ErrSecretResolution, "a secret provider is required outside local mode to resolve "+strings.Join(targets, ", "), nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	values, err := provider.ResolveBatch(ctx, keys)
	if err != nil {
		return configErr(ErrSecretResolution, fmt.Sprintf("failed to resolve %d secret references", len(keys)), err)
	}

	var missing []string
	for _, p := range pending {
		v, ok := values[p.ref]
		if !ok {
			missing = append(missing, p.target)
			continue
		}
		if err := deps.setEnv(p.target, v); err != nil {
			return configErr(ErrSecretResolution, "failed to export "+p.target, err)
		}
	}
	if len(missing) > 0 {
		return configErr(ErrSecretResolution, "secret references not found for: "+strings.Join(missing, ", "), nil)
	}
	return nil
}
