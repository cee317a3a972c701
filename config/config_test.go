package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/stavrosk/flrouter/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	var (
		tempDir string
		origWd  string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origWd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		viper.Reset()
	})

	AfterEach(func() {
		os.Chdir(origWd)
		os.RemoveAll(tempDir)
		viper.Reset()
	})

	writeConfig := func(content string) {
		err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0o644)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
client:
  environment: "dev"
  settle_delay: "100ms"

timeouts:
  request: "3s"
  ping_interval: "2s"
  server_ttl: "6s"

servers:
  - "localhost:5555"
  - "localhost:5556"

logging:
  level: "info"
`)
			})

			It("should load all sections", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Client.Environment).To(Equal("dev"))
				Expect(cfg.Timeouts.Request).To(Equal("3s"))
				Expect(cfg.Timeouts.PingInterval).To(Equal("2s"))
				Expect(cfg.Timeouts.ServerTTL).To(Equal("6s"))
				Expect(cfg.Servers).To(HaveLen(2))
				Expect(cfg.Logging.Level).To(Equal("info"))
			})
		})

		Context("with missing servers", func() {
			BeforeEach(func() {
				writeConfig(`
client:
  environment: "dev"
logging:
  level: "info"
`)
			})

			It("should fail validation", func() {
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with malformed server endpoint", func() {
			BeforeEach(func() {
				writeConfig(`
servers:
  - "not-a-hostport"
`)
			})

			It("should fail validation", func() {
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with invalid timeout duration", func() {
			BeforeEach(func() {
				writeConfig(`
timeouts:
  request: "soon"
servers:
  - "localhost:5555"
`)
			})

			It("should fail validation", func() {
				_, err := config.Load()
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		It("should reject an unknown environment", func() {
			cfg := &config.Config{
				Client:   config.ClientConfig{Environment: "qa", SettleDelay: "100ms"},
				Timeouts: config.TimeoutConfig{Request: "3s", PingInterval: "2s", ServerTTL: "6s"},
				Servers:  []string{"localhost:5555"},
				Logging:  config.LoggingConfig{Level: "info"},
			}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should reject an unknown log level", func() {
			cfg := &config.Config{
				Client:   config.ClientConfig{Environment: "dev", SettleDelay: "100ms"},
				Timeouts: config.TimeoutConfig{Request: "3s", PingInterval: "2s", ServerTTL: "6s"},
				Servers:  []string{"localhost:5555"},
				Logging:  config.LoggingConfig{Level: "verbose"},
			}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should accept a complete config", func() {
			cfg := &config.Config{
				Client:   config.ClientConfig{Environment: "prod", SettleDelay: "50ms"},
				Timeouts: config.TimeoutConfig{Request: "3s", PingInterval: "2s", ServerTTL: "6s"},
				Servers:  []string{"localhost:5555", "10.0.0.7:5556"},
				Logging:  config.LoggingConfig{Level: "debug"},
			}
			Expect(cfg.Validate()).NotTo(HaveOccurred())
		})
	})
})
