package internal_test

import (
	"time"

	"github.com/frahmantamala/liquidation-portal/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() *internal.Config {
	return &internal.Config{
		Env: "test",
		Server: internal.ServerConfig{
			Port:              8080,
			AllowedOrigins:    "*",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			Driver:       "postgres",
			Source:       "postgres://localhost/liquidation",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Security: internal.SecurityConfig{
			AccessTokenSecret:    "access-secret-access-secret-access-secret",
			RefreshTokenSecret:   "refresh-secret-refresh-secret-refresh-secret",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			BCryptCost:           10,
		},
		Storage: internal.StorageConfig{Root: "./data", PublicBaseURL: "http://localhost:8080/api/v1/receipts/files"},
		Logging: internal.LoggingConfig{Level: "info", Format: "json"},
	}
}

var _ = Describe("Config", func() {
	It("accepts a complete configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid sections",
		func(mutate func(*internal.Config), fragment string) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(fragment))
		},
		Entry("unknown driver", func(c *internal.Config) { c.Database.Driver = "mysql" }, "unsupported driver"),
		Entry("missing source", func(c *internal.Config) { c.Database.Source = "" }, "source is required"),
		Entry("idle above open", func(c *internal.Config) { c.Database.MaxIdleConns = 50 }, "max_idle_conns"),
		Entry("short secret", func(c *internal.Config) { c.Security.AccessTokenSecret = "short" }, "access_token_secret"),
		Entry("same secrets", func(c *internal.Config) { c.Security.RefreshTokenSecret = c.Security.AccessTokenSecret }, "must differ"),
		Entry("refresh shorter than access", func(c *internal.Config) { c.Security.RefreshTokenDuration = time.Minute }, "refresh_token_duration"),
		Entry("read timeout", func(c *internal.Config) { c.Server.ReadTimeout = time.Second }, "read_timeout"),
		Entry("storage root", func(c *internal.Config) { c.Storage.Root = "" }, "root is required"),
		Entry("negative workers", func(c *internal.Config) { c.Receipts.MaxWorkers = -1 }, "cannot be negative"),
		Entry("log level", func(c *internal.Config) { c.Logging.Level = "verbose" }, "unknown level"),
	)

	It("falls back to the default bucket", func() {
		Expect((&internal.StorageConfig{}).BucketName()).To(Equal(internal.DefaultReceiptBucket))
		Expect((&internal.StorageConfig{Bucket: "files"}).BucketName()).To(Equal("files"))
	})

	It("reads container settings from the environment", func() {
		GinkgoT().Setenv("DB_DRIVER", "sqlite")
		GinkgoT().Setenv("DATABASE_URL", "file:test.db")
		GinkgoT().Setenv("RECEIPT_MAX_WORKERS", "9")
		GinkgoT().Setenv("ACCESS_TOKEN_DURATION", "10m")

		cfg := internal.LoadConfigFromEnv()
		Expect(cfg.Database.Driver).To(Equal("sqlite"))
		Expect(cfg.Database.Source).To(Equal("file:test.db"))
		Expect(cfg.Receipts.MaxWorkers).To(Equal(9))
		Expect(cfg.Security.AccessTokenDuration).To(Equal(10 * time.Minute))
		Expect(cfg.Receipts.MaxFileSize).To(Equal(int64(internal.DefaultMaxReceiptSize)))
	})
})
