package config

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		Editor: Editor{
			BrushDiameter: 20,
			BrushColor:    "#ff0000",
		},
		Batch: Batch{
			PollIntervalSeconds: 5,
			MaxDurationSeconds:  600,
			TargetLanguage:      "en",
		},
		Server: Server{
			Bind: ":8888",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		JobLog: JobLog{
			Path: "inkwash-jobs.yaml",
		},
	}
}
