package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cvector/cvec-go/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 30_000)
				convey.So(cfg.RetryMaxAttempts, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CVEC_HOST", "example.cvector.dev")
			_ = os.Setenv("CVEC_API_KEY", "cva_hHs0CbkKALxMnxUdI9hanF0TBPvvvr1HjG6O")
			_ = os.Setenv("CVEC_TIMEOUT_MS", "5000")
			_ = os.Setenv("CVEC_CONCURRENCY", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "example.cvector.dev")
				convey.So(cfg.APIKey, convey.ShouldEqual, "cva_hHs0CbkKALxMnxUdI9hanF0TBPvvvr1HjG6O")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 5000)
				convey.So(cfg.Concurrency, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
host: "https://plant.cvector.dev"
retry_max_attempts: 5
default_start_at: "2023-01-01T00:00:00Z"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CVEC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "https://plant.cvector.dev")
				convey.So(cfg.RetryMaxAttempts, convey.ShouldEqual, 5)
				convey.So(cfg.DefaultStartAt, convey.ShouldEqual, "2023-01-01T00:00:00Z")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 30_000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("host: \"file_host\"\nconcurrency: 2\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CVEC_CONFIG", tmpFile)
			_ = os.Setenv("CVEC_HOST", "env_host")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "env_host")
				convey.So(cfg.Concurrency, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CVEC_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CVEC_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CVEC_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a zero timeout", func() {
			_ = os.Setenv("CVEC_TIMEOUT_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "timeout_ms must be positive")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"CVEC_CONFIG", "CVEC_LOG_LEVEL", "CVEC_HOST", "CVEC_API_KEY", "CVEC_TIMEOUT_MS",
		"CVEC_RETRY_MAX_ATTEMPTS", "CVEC_RETRY_BACKOFF_MS", "CVEC_CONCURRENCY",
		"CVEC_DEFAULT_START_AT", "CVEC_DEFAULT_END_AT",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cvec_config_*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
