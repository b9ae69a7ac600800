package config

const (
	defaultDataDir        = "~/.local/share/sensegrid"
	defaultLogDir         = "~/.local/share/sensegrid/logs"
	defaultAPIBind        = "127.0.0.1:7420"
	defaultBackendBaseURL = "http://127.0.0.1:8000"
	defaultRequestTimeout = 5
	defaultMaxRetries     = 5
	defaultFlushInterval  = 300
	defaultHealthInterval = 30
	defaultMQTTTopic      = "sensegrid/+/state"
	defaultMQTTClientID   = "sensegridd"
	defaultNtfyTimeout    = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Queue: Queue{
			MaxRetries: defaultMaxRetries,
		},
		Sync: Sync{
			FlushInterval:  defaultFlushInterval,
			HealthInterval: defaultHealthInterval,
		},
		MQTT: MQTT{
			Topic:    defaultMQTTTopic,
			ClientID: defaultMQTTClientID,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
