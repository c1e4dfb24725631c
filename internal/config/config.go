package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct
type Config struct {
	Timezone    string        `mapstructure:"timezone"`
	MetricsAddr string        `mapstructure:"metricsAddr"`
	MQTT        MQTTConfig    `mapstructure:"mqtt"`
	Printer     PrinterConfig `mapstructure:"printer"`
	Queue       QueueConfig   `mapstructure:"queue"`
	Guest       GuestConfig   `mapstructure:"guest"`
	Agent       AgentConfig   `mapstructure:"agent"`
	Receipt     Receipt       `mapstructure:"receipt"`
}

// MQTTConfig holds broker and topic settings
type MQTTConfig struct {
	Broker            string `mapstructure:"broker"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	TLS               bool   `mapstructure:"tls"`
	ClientID          string `mapstructure:"clientID"`
	PrinterTopic      string `mapstructure:"printerTopic"`
	InboxTopic        string `mapstructure:"inboxTopic"`
	HeartbeatTopic    string `mapstructure:"heartbeatTopic"`
	PrintSuccessTopic string `mapstructure:"printSuccessTopic"`
	QoS               int    `mapstructure:"qos"`
}

// PrinterConfig holds the physical printer parameters
type PrinterConfig struct {
	WidthPx         int           `mapstructure:"widthPx"`
	IP              string        `mapstructure:"ip"`
	Port            int           `mapstructure:"port"`
	HeartbeatWindow time.Duration `mapstructure:"heartbeatWindow"`
	ProbeInterval   time.Duration `mapstructure:"probeInterval"`
	StatusCache     time.Duration `mapstructure:"statusCache"`
	TCPTimeout      time.Duration `mapstructure:"tcpTimeout"`
}

// QueueConfig holds job store and scheduler settings
type QueueConfig struct {
	Dir          string        `mapstructure:"dir"`
	Capacity     int           `mapstructure:"capacity"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	DrainPause   time.Duration `mapstructure:"drainPause"`
}

// GuestConfig holds the guest quota gate settings
type GuestConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxChars     int    `mapstructure:"maxChars"`
	DefaultQuota int    `mapstructure:"defaultQuota"`
}

// AgentConfig holds the websocket relay agent settings
type AgentConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	WSURL    string `mapstructure:"wsURL"`
	APIKey   string `mapstructure:"apiKey"`
	AgentKey string `mapstructure:"agentKey"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := newViper(cfgFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Receipt.ApplyPreset()

	return cfg, nil
}

// LoadReceipt re-reads only the receipt section. Used by the snapshot
// refresher so style changes apply without a restart.
func LoadReceipt(cfgFile string) (Receipt, error) {
	v := newViper(cfgFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Receipt{}, err
		}
	}

	var cfg struct {
		Receipt Receipt `mapstructure:"receipt"`
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Receipt{}, err
	}
	cfg.Receipt.ApplyPreset()
	return cfg.Receipt, nil
}

func newViper(cfgFile string) *viper.Viper {
	v := viper.New()

	v.SetDefault("timezone", "Europe/Zurich")
	v.SetDefault("metricsAddr", "")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.port", 8883)
	v.SetDefault("mqtt.tls", true)
	v.SetDefault("mqtt.clientID", "receiptd")
	v.SetDefault("mqtt.printerTopic", "Prn20B1B50C2199")
	v.SetDefault("mqtt.inboxTopic", "todos/print")
	v.SetDefault("mqtt.heartbeatTopic", "Heartbeat")
	v.SetDefault("mqtt.printSuccessTopic", "PrintSuccess")
	v.SetDefault("mqtt.qos", 2)

	v.SetDefault("printer.widthPx", 576)
	v.SetDefault("printer.ip", "")
	v.SetDefault("printer.port", 9100)
	v.SetDefault("printer.heartbeatWindow", 60*time.Second)
	v.SetDefault("printer.probeInterval", 10*time.Second)
	v.SetDefault("printer.statusCache", 25*time.Second)
	v.SetDefault("printer.tcpTimeout", 2500*time.Millisecond)

	v.SetDefault("queue.dir", "data/print-queue")
	v.SetDefault("queue.capacity", 20)
	v.SetDefault("queue.pollInterval", 20*time.Second)
	v.SetDefault("queue.drainPause", 500*time.Millisecond)

	v.SetDefault("guest.dir", "data/guest-tokens")
	v.SetDefault("guest.maxChars", 10000)
	v.SetDefault("guest.defaultQuota", 5)

	v.SetDefault("agent.enabled", false)
	v.SetDefault("agent.wsURL", "")
	v.SetDefault("agent.apiKey", "")
	v.SetDefault("agent.agentKey", "")

	setReceiptDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	return v
}
