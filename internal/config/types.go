package config

import "time"

// OrchestratorConfig holds the recognised master-process options from
// the shared key=value configuration file.
type OrchestratorConfig struct {
	DataDir                string
	SessionPrefix          string
	LogLevel               string
	DiscoveryRetryInterval time.Duration
	TrialStartTimeout      time.Duration
	TrialStopTimeout       time.Duration
	InitTimeout            time.Duration
	GUIStartMinimized      bool
	APIPort                int
	APIDebug               bool
}

// OrchestratorConfigFromManager builds an OrchestratorConfig from m,
// applying defaults for anything unset.
func OrchestratorConfigFromManager(m *Manager) OrchestratorConfig {
	return OrchestratorConfig{
		DataDir:                m.String("data_dir", "./data"),
		SessionPrefix:          m.String("session_prefix", "session_"),
		LogLevel:               m.String("log_level", "info"),
		DiscoveryRetryInterval: m.Seconds("discovery_retry_interval", 2*time.Second),
		TrialStartTimeout:      m.Seconds("trial_start_timeout", 3*time.Second),
		TrialStopTimeout:       m.Seconds("trial_stop_timeout", 5*time.Second),
		InitTimeout:            m.Seconds("init_timeout", 15*time.Second),
		GUIStartMinimized:      m.Bool("gui_start_minimized", false),
		APIPort:                m.Int("api_port", 8080),
		APIDebug:               m.Bool("api_debug", false),
	}
}

// ModuleConfig holds the recognised per-module options.
type ModuleConfig struct {
	SampleRate         int
	OutputDir          string
	AutoStartRecording bool
	AutoSelectNew      bool
	Width              int
	Height             int
	FPS                float64
	PreviewWidth       int
	PreviewHeight      int
	GUIPreviewUpdateHz float64
}

// ModuleConfigFromManager builds a ModuleConfig from m, applying
// reasonable defaults for a 720p-class USB camera / 48kHz audio module.
func ModuleConfigFromManager(m *Manager) ModuleConfig {
	return ModuleConfig{
		SampleRate:         m.Int("sample_rate", 48000),
		OutputDir:          m.String("output_dir", "."),
		AutoStartRecording: m.Bool("auto_start_recording", false),
		AutoSelectNew:      m.Bool("auto_select_new", true),
		Width:              m.Int("width", 1280),
		Height:             m.Int("height", 720),
		FPS:                m.Float("fps", 30),
		PreviewWidth:       m.Int("preview_width", 320),
		PreviewHeight:      m.Int("preview_height", 240),
		GUIPreviewUpdateHz: m.Float("gui_preview_update_hz", 10),
	}
}
