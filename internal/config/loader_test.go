package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/okian/valuator/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigNew(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has the documented defaults", func() {
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.PlayerTimeout(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.BattingReliability, convey.ShouldEqual, 1200)
			convey.So(cfg.PitchingReliability, convey.ShouldEqual, 134)
			convey.So(cfg.TrajectoryHorizon, convey.ShouldEqual, 7)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the composite weights sum to one", func() {
			sum := 0.0
			for _, w := range cfg.CompositeWeights {
				sum += w
			}
			convey.So(sum, convey.ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it loads successfully", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ModelVersion, convey.ShouldEqual, "dev")
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("VALUATOR_WORKER_COUNT", "16")
			_ = os.Setenv("VALUATOR_PLAYER_TIMEOUT_MS", "250")
			_ = os.Setenv("VALUATOR_MODEL_VERSION", "2025.2")
			_ = os.Setenv("VALUATOR_STORE_DRIVER", "sqlite")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.PlayerTimeout(), convey.ShouldEqual, 250*time.Millisecond)
				convey.So(cfg.ModelVersion, convey.ShouldEqual, "2025.2")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
			})
		})

		convey.Convey("When a YAML file and env are both present", func() {
			tmpFile := createTempConfigFile(`
worker_count: 24
queue_size: 500
max_null_fraction: 0.4
composite_weights:
  projected_value: 0.5
  consistency: 0.5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("VALUATOR_CONFIG", tmpFile)
			_ = os.Setenv("VALUATOR_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.MaxNullFraction, convey.ShouldEqual, 0.4)
				convey.So(cfg.CompositeWeights["projected_value"], convey.ShouldEqual, 0.5)
				convey.So(cfg.TrajectoryHorizon, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("VALUATOR_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("VALUATOR_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric env var does not parse", func() {
			_ = os.Setenv("VALUATOR_QUEUE_SIZE", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When values are out of range", func() {
			cases := map[string]string{
				"VALUATOR_WORKER_COUNT":      "0",
				"VALUATOR_PLAYER_TIMEOUT_MS": "-5",
				"VALUATOR_STORE_DRIVER":      "postgres",
				"VALUATOR_MAX_NULL_FRACTION": "1.5",
			}
			for key, val := range cases {
				_ = os.Setenv(key, val)
				cfg, err := config.Load(ctx)
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				_ = os.Unsetenv(key)
			}
		})
	})
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "valuator-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "VALUATOR_") {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}
