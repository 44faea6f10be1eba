package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/nexus-ssn/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setEnv("NEXUS_ADDR", ":8080")
			setEnv("NEXUS_QUEUE_SIZE", "500")
			setEnv("NEXUS_WORKER_COUNT", "16")
			setEnv("NEXUS_DEFAULT_METHODOLOGY", "62.5")
			setEnv("NEXUS_CORS_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.DefaultMethodology, convey.ShouldEqual, 62.5)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "addr: \":7070\"\nstore_driver: sqlite\nstore_dsn: \"file:nexus.db\"\nbatch_concurrency: 8\nredis_addr: \"localhost:6379\"\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			setEnv("NEXUS_CONFIG", path)
			setEnv("NEXUS_BATCH_CONCURRENCY", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "file:nexus.db")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.BatchConcurrency, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			setEnv("NEXUS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env produces an invalid config", func() {
			setEnv("NEXUS_STORE_DRIVER", "postgres")
			_, err := config.Load(ctx)

			convey.Convey("Then a validation error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// setEnv sets an env var for the current Convey leaf only.
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
	convey.Reset(func() { _ = os.Unsetenv(key) })
}
