package config

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			RecordingsDir: "~/recordings",
			StagingDir:    "~/.local/share/aircheck/staging",
			ExtraLocalDir: "",
			LogDir:        "~/.local/share/aircheck/logs",
		},
		Capture: Capture{
			RetryBackoffSeconds: 30,
			DefaultFormat:       "mp3",
			DefaultBitrate:      128,
		},
		Scheduler: Scheduler{
			TickSeconds: 5,
		},
		Remote: Remote{
			BaseDir:        "/Recordings",
			TimeoutSeconds: 300,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
