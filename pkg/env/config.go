// Package env provides the configuration shared by the commands.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config provides common options of the device emulator and the host shell.
type Config struct {
	// ID identifies the device on the MQTT broker.
	ID string `yaml:"id"`
	// MQTTURL specifies the broker to bridge the console to.
	// e.g. mqtt://host:port/topic-prefix. Empty disables the bridge.
	MQTTURL string `yaml:"mqtt"`
	// WebSocketAddr is the listen address of the websocket console.
	// Empty disables it.
	WebSocketAddr string `yaml:"websocket"`
	// Port is the serial device (e.g. /dev/ttyACM0) or a ws:// URL used by
	// the host shell.
	Port string `yaml:"port"`
	// BaudRate of the serial line.
	BaudRate int `yaml:"baud"`
	// LEDPin is the output driven by the LED commands.
	LEDPin uint `yaml:"led"`
	// StatsInterval is how often statistics are published.
	StatsInterval time.Duration `yaml:"stats_interval"`
}

var (
	defaultConfig = Config{
		BaudRate:      9600,
		LEDPin:        5,
		StatsInterval: 10 * time.Second,
	}

	// loadErr is reported by Validate.
	loadErr error
)

// appID salts the machine ID so the raw ID is never published.
const appID = "uartcon"

// Environment variables. They can also be placed in a .env file in the
// working directory.
const (
	EnvConfigFile = "UARTCON_CONFIG"
	EnvID         = "UARTCON_ID"
	EnvMQTTURL    = "UARTCON_MQTT_URL"
	EnvWSAddr     = "UARTCON_WS_ADDR"
	EnvPort       = "UARTCON_PORT"
	EnvBaud       = "UARTCON_BAUD"
)

// Precedence: flags, environment, .env, config file, defaults.
func init() {
	if id, err := machineid.ProtectedID(appID); err == nil && len(id) >= 12 {
		defaultConfig.ID = id[:12]
	} else {
		defaultConfig.ID = appID
	}
	vars, err := godotenv.Read()
	if err != nil {
		vars = make(map[string]string)
	}
	for _, name := range []string{EnvConfigFile, EnvID, EnvMQTTURL, EnvWSAddr, EnvPort, EnvBaud} {
		if val := os.Getenv(name); val != "" {
			vars[name] = val
		}
	}
	if fn := vars[EnvConfigFile]; fn != "" {
		if err := defaultConfig.LoadFile(fn); err != nil {
			loadErr = err
		}
	}
	if err := defaultConfig.ApplyEnv(vars); err != nil && loadErr == nil {
		loadErr = err
	}
}

// LoadFile merges a YAML config file into c.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("read config %s: %v", fn, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %v", fn, err)
	}
	return nil
}

// ApplyEnv overrides c with the non-empty environment variables in vars.
func (c *Config) ApplyEnv(vars map[string]string) error {
	if val := vars[EnvID]; val != "" {
		c.ID = val
	}
	if val := vars[EnvMQTTURL]; val != "" {
		c.MQTTURL = val
	}
	if val := vars[EnvWSAddr]; val != "" {
		c.WebSocketAddr = val
	}
	if val := vars[EnvPort]; val != "" {
		c.Port = val
	}
	if val := vars[EnvBaud]; val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvBaud, err)
		}
		c.BaudRate = baud
	}
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Device ID")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, e.g. mqtt://localhost:1883/uartcon/")
	flag.StringVar(&defaultConfig.WebSocketAddr, "ws", defaultConfig.WebSocketAddr, "Websocket console listen address, e.g. :8080")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial device or ws:// URL of the console")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate")
	flag.UintVar(&defaultConfig.LEDPin, "led", defaultConfig.LEDPin, "LED output pin")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Statistics publish interval")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if loadErr != nil {
		return loadErr
	}
	if c.ID == "" {
		return fmt.Errorf("device id must be specified")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.LEDPin > 255 {
		return fmt.Errorf("invalid LED pin %d", c.LEDPin)
	}
	return nil
}

// CharTime is the time to transmit one byte with 8N1 framing.
func (c *Config) CharTime() time.Duration {
	if c.BaudRate <= 0 {
		return 0
	}
	return time.Second * 10 / time.Duration(c.BaudRate)
}
