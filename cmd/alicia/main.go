package main

import (
	"fmt"
	"os"

	"github.com/aliciabus/alicia/pkg/bootconfig"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alicia",
	Short: "Alicia - smart-home service bus",
	Long: `Alicia is a pub/sub broker-based smart-home service bus:
device control, a voice pipeline (speech-to-text, AI completion,
text-to-speech), access control, health monitoring, and load
balancing, all communicating over a single MQTT broker.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Alicia version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML bootstrap config file (flags override its values)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("broker", "mqtt://127.0.0.1:1883", "MQTT broker URL")
	rootCmd.PersistentFlags().String("mqtt-username", "", "MQTT broker username")
	rootCmd.PersistentFlags().String("mqtt-password", "", "MQTT broker password")
	rootCmd.PersistentFlags().String("http-addr", "127.0.0.1:8080", "HTTP API bind address")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9090", "Prometheus metrics bind address")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(securityCmd)
	rootCmd.AddCommand(loadbalancerCmd)
	rootCmd.AddCommand(devicemanagerCmd)
	rootCmd.AddCommand(ttsCmd)
	rootCmd.AddCommand(sttCmd)
	rootCmd.AddCommand(aiCmd)
	rootCmd.AddCommand(discoveryCmd)
	rootCmd.AddCommand(healthmonitorCmd)
}

func initLogging() {
	flags := rootCmd.PersistentFlags()
	configPath, _ := flags.GetString("config")
	boot, err := bootconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap config: %v\n", err)
		boot = &bootconfig.Bootstrap{}
	}

	logLevel, _ := flags.GetString("log-level")
	if !flags.Changed("log-level") && boot.LogLevel != "" {
		logLevel = boot.LogLevel
	}
	logJSON, _ := flags.GetBool("log-json")
	if !flags.Changed("log-json") && boot.LogJSON {
		logJSON = boot.LogJSON
	}

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// persistentFlags resolves the broker/http/metrics settings a subcommand
// needs, letting an explicit flag win over the YAML bootstrap file,
// which in turn wins over the flag's built-in default.
func persistentFlags(cmd *cobra.Command) (broker, username, password, httpAddr, metricsAddr string) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	boot, err := bootconfig.Load(configPath)
	if err != nil {
		boot = &bootconfig.Bootstrap{}
	}

	broker = resolveFlag(flags, "broker", boot.Broker)
	username = resolveFlag(flags, "mqtt-username", boot.MQTTUsername)
	password = resolveFlag(flags, "mqtt-password", boot.MQTTPassword)
	httpAddr = resolveFlag(flags, "http-addr", boot.HTTPAddr)
	metricsAddr = resolveFlag(flags, "metrics-addr", boot.MetricsAddr)
	return
}

// resolveFlag returns the flag's value unless it was left at its
// default and the bootstrap file supplies an override.
func resolveFlag(flags *pflag.FlagSet, name, bootValue string) string {
	value, _ := flags.GetString(name)
	if !flags.Changed(name) && bootValue != "" {
		return bootValue
	}
	return value
}
