package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	conf := NewConfig()
	require.NotEmpty(t, conf.ID)
	require.NoError(t, conf.Validate())
	require.NotSame(t, Default(), conf)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"no id", func(c *Config) { c.ID = "" }, false},
		{"zero baud", func(c *Config) { c.BaudRate = 0 }, false},
		{"pin out of range", func(c *Config) { c.LEDPin = 300 }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			conf.ID = "dev"
			tc.modify(conf)
			if tc.valid {
				require.NoError(t, conf.Validate())
			} else {
				require.Error(t, conf.Validate())
			}
		})
	}
}

func TestConfigCharTime(t *testing.T) {
	conf := NewConfig()
	conf.BaudRate = 10000
	require.Equal(t, time.Millisecond, conf.CharTime())
	conf.BaudRate = 0
	require.Zero(t, conf.CharTime())
}

func TestConfigApplyEnv(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.ApplyEnv(map[string]string{
		EnvID:      "dev7",
		EnvMQTTURL: "mqtt://broker:1883/uartcon/",
		EnvWSAddr:  ":8080",
		EnvPort:    "/dev/ttyUSB0",
		EnvBaud:    "115200",
	}))
	require.Equal(t, "dev7", conf.ID)
	require.Equal(t, "mqtt://broker:1883/uartcon/", conf.MQTTURL)
	require.Equal(t, ":8080", conf.WebSocketAddr)
	require.Equal(t, "/dev/ttyUSB0", conf.Port)
	require.Equal(t, 115200, conf.BaudRate)

	require.Error(t, conf.ApplyEnv(map[string]string{EnvBaud: "fast"}))
	require.NoError(t, conf.ApplyEnv(nil))
	require.Equal(t, "dev7", conf.ID)
}

func TestConfigLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "uartcon.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
id: bench
mqtt: mqtt://localhost:1883/lab/
baud: 115200
led: 13
stats_interval: 2s
`), 0644))
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, "bench", conf.ID)
	require.Equal(t, "mqtt://localhost:1883/lab/", conf.MQTTURL)
	require.Equal(t, 115200, conf.BaudRate)
	require.Equal(t, uint(13), conf.LEDPin)
	require.Equal(t, 2*time.Second, conf.StatsInterval)

	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.NoError(t, os.WriteFile(fn, []byte("baud: [1"), 0644))
	require.Error(t, conf.LoadFile(fn))
}

func TestConfigValidateReportsLoadError(t *testing.T) {
	saved := loadErr
	defer func() { loadErr = saved }()

	conf := NewConfig()
	loadErr = conf.ApplyEnv(map[string]string{EnvBaud: "fast"})
	require.Error(t, loadErr)
	require.Equal(t, loadErr, conf.Validate())
	require.Equal(t, loadErr, Default().Validate())
}
