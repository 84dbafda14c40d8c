package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Media engine tuning.
	Workers                int           `mapstructure:"workers"`
	RtcMinPort             int           `mapstructure:"rtc_min_port"`
	RtcMaxPort             int           `mapstructure:"rtc_max_port"`
	SpeakerPollInterval    time.Duration `mapstructure:"speaker_poll_interval"`
	ForwardingCap          int           `mapstructure:"forwarding_cap"`
	InitialOutgoingBitrate int           `mapstructure:"initial_outgoing_bitrate"`
	MaxIncomingBitrate     int           `mapstructure:"max_incoming_bitrate"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")

	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("rtc_min_port", 40000)
	v.SetDefault("rtc_max_port", 41000)
	v.SetDefault("speaker_poll_interval", "300ms")
	v.SetDefault("forwarding_cap", 2)
	v.SetDefault("initial_outgoing_bitrate", 1_000_000)
	v.SetDefault("max_incoming_bitrate", 1_500_000)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
