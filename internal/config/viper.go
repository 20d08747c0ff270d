package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (MQ_*)
// 3. User config file (~/.config/mq/config.yaml)
// 4. System config file (/etc/mq/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	// User config (highest priority)
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(userConfigDir, "mq"))
	}

	// Home directory fallback
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".mq"))
	}

	// System-wide config (lower priority)
	viper.AddConfigPath("/etc/mq")

	// Current directory (for development)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("MQ")
	viper.AutomaticEnv()

	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("mem_per_cpu_gb", 4)
	viper.SetDefault("max_walltime_hours", 168)
	viper.SetDefault("default_queue", "")
	viper.SetDefault("gpu_types", []string{"A100", "H100"})
	viper.SetDefault("poll_interval", "30s")
	viper.SetDefault("transient_backoff", "2m")

	viper.SetDefault("qsub_bin", "qsub")
	viper.SetDefault("qstat_bin", "qstat")
	viper.SetDefault("pbsnodes_bin", "pbsnodes")
	viper.SetDefault("qusers_bin", "qusers")
	viper.SetDefault("sendmail_bin", "sendmail")

	viper.SetDefault("log_base_dir", "")
	viper.SetDefault("scratch_root", "/scratch")
	viper.SetDefault("tmp_root", "$TMPDIR")
	viper.SetDefault("mail_domain", "")
}

// LoadFromViper copies resolved viper values into the Global config.
// Empty string values keep the built-in defaults set by LoadDefaults.
func LoadFromViper() {
	Global.MemPerCPUGB = viper.GetInt("mem_per_cpu_gb")
	Global.MaxWalltimeHours = viper.GetInt("max_walltime_hours")
	Global.DefaultQueue = viper.GetString("default_queue")
	Global.GpuTypes = viper.GetStringSlice("gpu_types")

	if d, err := time.ParseDuration(viper.GetString("poll_interval")); err == nil && d > 0 {
		Global.PollInterval = d
	}
	if d, err := time.ParseDuration(viper.GetString("transient_backoff")); err == nil && d > 0 {
		Global.TransientBackoff = d
	}

	Global.QsubBin = viper.GetString("qsub_bin")
	Global.QstatBin = viper.GetString("qstat_bin")
	Global.PbsnodesBin = viper.GetString("pbsnodes_bin")
	Global.QusersBin = viper.GetString("qusers_bin")
	Global.SendmailBin = viper.GetString("sendmail_bin")

	if dir := viper.GetString("log_base_dir"); dir != "" {
		Global.LogBaseDir = dir
	}
	Global.ScratchRoot = viper.GetString("scratch_root")
	Global.TmpRoot = viper.GetString("tmp_root")
	Global.MailDomain = viper.GetString("mail_domain")
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".mq", ConfigFilename+"."+ConfigType), nil
	}
	return filepath.Join(userConfigDir, "mq", ConfigFilename+"."+ConfigType), nil
}
