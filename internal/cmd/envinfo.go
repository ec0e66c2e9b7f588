package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/config"
	"github.com/bffagent/bffagent/internal/observability"
)

// envSection is one titled block of envinfo output.
type envSection struct {
	title string
	rows  [][2]string
}

func (s *envSection) add(label, value string) {
	s.rows = append(s.rows, [2]string{label, value})
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Show the build, runtime and effective proxy/client configuration. Secrets are reported as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		sections := []envSection{buildSection(), runtimeSection()}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			printEnvSections(sections)
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}
		printEnvSections(append(sections, configSections(cfg)...))
	},
}

func buildSection() envSection {
	name := "bffagent"
	if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
		name = identity.BinaryName
	}
	libs := crucible.GetVersion()

	s := envSection{title: "Application"}
	s.add("Name", name)
	s.add("Version", versionInfo.Version)
	s.add("Commit", versionInfo.Commit)
	s.add("Built", versionInfo.BuildDate)
	s.add("Gofulmen", libs.Gofulmen)
	s.add("Crucible", libs.Crucible)
	return s
}

func runtimeSection() envSection {
	s := envSection{title: "Runtime"}
	s.add("Go", runtime.Version())
	s.add("Platform", runtime.GOOS+"/"+runtime.GOARCH)
	s.add("CPUs", fmt.Sprint(runtime.NumCPU()))
	return s
}

func configSections(cfg *config.Config) []envSection {
	general := envSection{title: "Configuration"}
	general.add("Config file", config.DefaultConfigPath())
	general.add("Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	general.add("Logging", cfg.Logging.Level+" / "+cfg.Logging.Profile)
	if cfg.Metrics.Enabled {
		general.add("Metrics port", fmt.Sprint(cfg.Metrics.Port))
	} else {
		general.add("Metrics", "disabled")
	}
	if strings.TrimSpace(cfg.Store.URL) != "" {
		general.add("Store", cfg.Store.Driver+" "+cfg.Store.URL)
	} else {
		general.add("Store", cfg.Store.Driver+" "+cfg.Store.Path)
	}

	proxySection := envSection{title: "Proxy"}
	proxySection.add("Provider URL", cfg.Provider.BaseURL)
	proxySection.add("Model", cfg.Provider.Model)
	proxySection.add("API key", setOrUnset(cfg.Provider.APIKey))
	proxySection.add("Rate limit", fmt.Sprintf("%d per %s (%s)", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.RateLimit.Backend))
	proxySection.add("Breaker", fmt.Sprintf("%d failures, open %s", cfg.Provider.Breaker.MaxFailures, cfg.Provider.Breaker.Timeout))

	client := envSection{title: "Client"}
	client.add("Proxy URL", cfg.Client.BaseURL)
	client.add("Access key", setOrUnset(cfg.Client.AccessKey))

	return []envSection{general, proxySection, client}
}

func printEnvSections(sections []envSection) {
	for _, s := range sections {
		observability.CLILogger.Info(s.title + ":")
		for _, row := range s.rows {
			observability.CLILogger.Info(fmt.Sprintf("  %-14s %s", row[0]+":", row[1]))
		}
		observability.CLILogger.Info("")
	}
}

func setOrUnset(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
