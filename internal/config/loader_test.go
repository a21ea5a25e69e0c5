package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/gametrace/internal/app"
	"github.com/okian/gametrace/internal/config"
	"github.com/okian/gametrace/internal/domain/codec"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Host, convey.ShouldEqual, "localhost")
			convey.So(cfg.StorageType, convey.ShouldEqual, "net")
			convey.So(cfg.TraceFormat, convey.ShouldEqual, "csv")
			convey.So(cfg.LogFile, convey.ShouldEqual, "traces.csv")
			convey.So(cfg.BackupFile, convey.ShouldEqual, "backup.csv")
			convey.So(cfg.Strict, convey.ShouldBeTrue)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.FlushInterval(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
				convey.So(cfg.CollectorAddr, convey.ShouldEqual, ":9080")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GAMETRACE_HOST", "collector.example")
			_ = os.Setenv("GAMETRACE_PORT", "8443")
			_ = os.Setenv("GAMETRACE_SECURE", "true")
			_ = os.Setenv("GAMETRACE_BATCH_SIZE", "25")
			_ = os.Setenv("GAMETRACE_TRACE_FORMAT", "xapi")
			_ = os.Setenv("GAMETRACE_STRICT", "false")
			_ = os.Setenv("GAMETRACE_QUEUE_CAPACITY", "500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "collector.example")
				convey.So(cfg.Port, convey.ShouldEqual, 8443)
				convey.So(cfg.Secure, convey.ShouldBeTrue)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 25)
				convey.So(cfg.Strict, convey.ShouldBeFalse)

				s := cfg.Settings(ctx)
				convey.So(s.TraceFormat, convey.ShouldEqual, codec.FormatXAPI)
				convey.So(s.BaseURL(), convey.ShouldEqual, "https://collector.example:8443/")
				convey.So(s.QueueCapacity, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
host: "traces.example"
storage_type: local
tracking_code: "demo"
batch_size: 50
persist_pending: true
store_backend: sqlite
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GAMETRACE_CONFIG", tmpFile)
			_ = os.Setenv("GAMETRACE_BATCH_SIZE", "10")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "traces.example")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.TraceFormat, convey.ShouldEqual, "csv")

				s := cfg.Settings(ctx)
				convey.So(s.StorageType, convey.ShouldEqual, app.StorageLocal)
				convey.So(s.TrackingCode, convey.ShouldEqual, "demo")
				convey.So(s.PersistPending, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GAMETRACE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GAMETRACE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("GAMETRACE_BATCH_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given invalid values", t, func() {
		ctx := context.Background()
		cases := map[string]string{
			"GAMETRACE_HOST":           "",
			"GAMETRACE_STORAGE_TYPE":   "cloud",
			"GAMETRACE_TRACE_FORMAT":   "yaml",
			"GAMETRACE_STORE_BACKEND":  "redis",
			"GAMETRACE_BATCH_SIZE":     "-1",
			"GAMETRACE_PORT":           "70000",
			"GAMETRACE_QUEUE_CAPACITY": "-5",
		}
		for key, value := range cases {
			convey.Convey("Then "+key+"="+value+" is rejected", func() {
				_ = os.Setenv(key, value)
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		}
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"GAMETRACE_CONFIG",
		"GAMETRACE_HOST",
		"GAMETRACE_PORT",
		"GAMETRACE_SECURE",
		"GAMETRACE_BATCH_SIZE",
		"GAMETRACE_TRACE_FORMAT",
		"GAMETRACE_STORAGE_TYPE",
		"GAMETRACE_STORE_BACKEND",
		"GAMETRACE_STRICT",
		"GAMETRACE_QUEUE_CAPACITY",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "gametrace-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
