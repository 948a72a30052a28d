// Package settings defines the agent's single immutable configuration value
// and its YAML loading, defaulting, and round-trip behavior.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the agent's single immutable configuration value. It is
// constructed once, via Load or New, and shared by read-only reference;
// nothing in the agent mutates a *Settings after construction.
type Settings struct {
	TargetFPS                float64  `yaml:"target_fps"`
	MaxFPS                   float64  `yaml:"max_fps"`
	BufferSeconds            float64  `yaml:"buffer_seconds"`
	DiffThresholdPercent     float64  `yaml:"diff_threshold_percent"`
	Tier2ThresholdPercent    float64  `yaml:"tier2_threshold_percent"`
	StabilityWaitMs          int      `yaml:"stability_wait_ms"`
	MinZoneConfidence        float64  `yaml:"min_zone_confidence"`
	ZoneExpirySeconds        int      `yaml:"zone_expiry_seconds"`
	HoverThresholdMs         int      `yaml:"hover_threshold_ms"`
	MotionSpeedPixelsPerSec  float64  `yaml:"motion_speed_pixels_per_sec"`
	StepDelaySeconds         float64  `yaml:"step_delay_seconds"`
	APITimeoutVisionSeconds  float64  `yaml:"api_timeout_vision_seconds"`
	APITimeoutTextSeconds    float64  `yaml:"api_timeout_text_seconds"`
	APIMaxRetries            int      `yaml:"api_max_retries"`
	APIBackoffBaseSeconds    float64  `yaml:"api_backoff_base_seconds"`
	MaxAPICalls              int      `yaml:"max_api_calls"`
	MaxReplans               int      `yaml:"max_replans"`
	MaxStepRetries           int      `yaml:"max_step_retries"`
	RecordingEnabled         bool     `yaml:"recording_enabled"`
	SessionDir               string   `yaml:"session_dir"`
	RecaptureKeywords        []string `yaml:"recapture_keywords"`
	HistoryDBPath            string   `yaml:"history_db_path"`
	LogLevel                 string   `yaml:"log_level"`
	LogFormat                string   `yaml:"log_format"`
	VisionProvider           string   `yaml:"vision_provider"`
	TaskPlannerProvider      string   `yaml:"task_planner_provider"`
	IdleTickCron             string   `yaml:"idle_tick_cron"`
	OTLPEndpoint             string   `yaml:"otlp_endpoint"`
}

// DefaultRecaptureKeywords is the pinned default keyword set used to decide
// whether a step's expected_change warrants an inter-step recapture.
var DefaultRecaptureKeywords = []string{
	"window", "dialog", "open", "launch", "appear", "application", "menu", "save as",
}

// Default returns a Settings value populated entirely with the spec's
// documented defaults.
func Default() *Settings {
	return &Settings{
		TargetFPS:               15,
		MaxFPS:                  30,
		BufferSeconds:           5,
		DiffThresholdPercent:    0.5,
		Tier2ThresholdPercent:   30.0,
		StabilityWaitMs:         250,
		MinZoneConfidence:       0.4,
		ZoneExpirySeconds:       60,
		HoverThresholdMs:        500,
		MotionSpeedPixelsPerSec: 1500,
		StepDelaySeconds:        2.0,
		APITimeoutVisionSeconds: 60,
		APITimeoutTextSeconds:   30,
		APIMaxRetries:           3,
		APIBackoffBaseSeconds:   2.0,
		MaxAPICalls:             30,
		MaxReplans:              5,
		MaxStepRetries:          3,
		RecordingEnabled:        false,
		SessionDir:              "",
		RecaptureKeywords:       append([]string(nil), DefaultRecaptureKeywords...),
		HistoryDBPath:           "",
		LogLevel:                "info",
		LogFormat:               "json",
		VisionProvider:          "anthropic",
		TaskPlannerProvider:     "anthropic",
	}
}

// Load reads a YAML settings file, expanding environment variables, and
// applies defaults to any field left unset. Unknown keys in the file are
// silently ignored, by the YAML decoder's natural behavior, satisfying the
// forward-compatibility requirement on configuration.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	s := Default()
	if err := yaml.Unmarshal([]byte(expanded), s); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}

	applyDefaults(s)
	return s, nil
}

// applyDefaults fills any zero-valued field left unset by a partial YAML
// document with the spec's default. Booleans and strings that are
// legitimately empty/false by default are left alone.
func applyDefaults(s *Settings) {
	d := Default()
	if s.TargetFPS == 0 {
		s.TargetFPS = d.TargetFPS
	}
	if s.MaxFPS == 0 {
		s.MaxFPS = d.MaxFPS
	}
	if s.BufferSeconds == 0 {
		s.BufferSeconds = d.BufferSeconds
	}
	if s.DiffThresholdPercent == 0 {
		s.DiffThresholdPercent = d.DiffThresholdPercent
	}
	if s.Tier2ThresholdPercent == 0 {
		s.Tier2ThresholdPercent = d.Tier2ThresholdPercent
	}
	if s.StabilityWaitMs == 0 {
		s.StabilityWaitMs = d.StabilityWaitMs
	}
	if s.MinZoneConfidence == 0 {
		s.MinZoneConfidence = d.MinZoneConfidence
	}
	if s.ZoneExpirySeconds == 0 {
		s.ZoneExpirySeconds = d.ZoneExpirySeconds
	}
	if s.HoverThresholdMs == 0 {
		s.HoverThresholdMs = d.HoverThresholdMs
	}
	if s.MotionSpeedPixelsPerSec == 0 {
		s.MotionSpeedPixelsPerSec = d.MotionSpeedPixelsPerSec
	}
	if s.APITimeoutVisionSeconds == 0 {
		s.APITimeoutVisionSeconds = d.APITimeoutVisionSeconds
	}
	if s.APITimeoutTextSeconds == 0 {
		s.APITimeoutTextSeconds = d.APITimeoutTextSeconds
	}
	if s.APIMaxRetries == 0 {
		s.APIMaxRetries = d.APIMaxRetries
	}
	if s.APIBackoffBaseSeconds == 0 {
		s.APIBackoffBaseSeconds = d.APIBackoffBaseSeconds
	}
	if s.MaxAPICalls == 0 {
		s.MaxAPICalls = d.MaxAPICalls
	}
	if s.MaxReplans == 0 {
		s.MaxReplans = d.MaxReplans
	}
	if s.MaxStepRetries == 0 {
		s.MaxStepRetries = d.MaxStepRetries
	}
	if len(s.RecaptureKeywords) == 0 {
		s.RecaptureKeywords = append([]string(nil), d.RecaptureKeywords...)
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.LogFormat == "" {
		s.LogFormat = d.LogFormat
	}
	if s.VisionProvider == "" {
		s.VisionProvider = d.VisionProvider
	}
	if s.TaskPlannerProvider == "" {
		s.TaskPlannerProvider = d.TaskPlannerProvider
	}
	// StepDelaySeconds == 0 is a legitimate, meaningful value (disables both
	// the inter-step delay and the startup signal animation); it is not
	// defaulted.
}

// ToMap renders the settings as a plain map, suitable for serialization to
// callers that do not want to depend on the Settings struct directly.
func (s *Settings) ToMap() map[string]any {
	return map[string]any{
		"target_fps":                  s.TargetFPS,
		"max_fps":                     s.MaxFPS,
		"buffer_seconds":              s.BufferSeconds,
		"diff_threshold_percent":      s.DiffThresholdPercent,
		"tier2_threshold_percent":     s.Tier2ThresholdPercent,
		"stability_wait_ms":           s.StabilityWaitMs,
		"min_zone_confidence":         s.MinZoneConfidence,
		"zone_expiry_seconds":         s.ZoneExpirySeconds,
		"hover_threshold_ms":          s.HoverThresholdMs,
		"motion_speed_pixels_per_sec": s.MotionSpeedPixelsPerSec,
		"step_delay_seconds":          s.StepDelaySeconds,
		"api_timeout_vision_seconds":  s.APITimeoutVisionSeconds,
		"api_timeout_text_seconds":    s.APITimeoutTextSeconds,
		"api_max_retries":             s.APIMaxRetries,
		"api_backoff_base_seconds":    s.APIBackoffBaseSeconds,
		"max_api_calls":               s.MaxAPICalls,
		"max_replans":                 s.MaxReplans,
		"max_step_retries":            s.MaxStepRetries,
		"recording_enabled":           s.RecordingEnabled,
		"session_dir":                 s.SessionDir,
		"recapture_keywords":          append([]string(nil), s.RecaptureKeywords...),
		"history_db_path":             s.HistoryDBPath,
		"log_level":                   s.LogLevel,
		"log_format":                  s.LogFormat,
		"vision_provider":             s.VisionProvider,
		"task_planner_provider":       s.TaskPlannerProvider,
		"idle_tick_cron":              s.IdleTickCron,
		"otlp_endpoint":               s.OTLPEndpoint,
	}
}

// FromMap constructs a Settings from a plain map, defaulting any key that is
// absent or of the wrong type. Unknown keys are ignored. Round-trips with
// ToMap: FromMap(s.ToMap()) produces an equal Settings.
func FromMap(m map[string]any) *Settings {
	s := Default()
	if v, ok := floatField(m, "target_fps"); ok {
		s.TargetFPS = v
	}
	if v, ok := floatField(m, "max_fps"); ok {
		s.MaxFPS = v
	}
	if v, ok := floatField(m, "buffer_seconds"); ok {
		s.BufferSeconds = v
	}
	if v, ok := floatField(m, "diff_threshold_percent"); ok {
		s.DiffThresholdPercent = v
	}
	if v, ok := floatField(m, "tier2_threshold_percent"); ok {
		s.Tier2ThresholdPercent = v
	}
	if v, ok := intField(m, "stability_wait_ms"); ok {
		s.StabilityWaitMs = v
	}
	if v, ok := floatField(m, "min_zone_confidence"); ok {
		s.MinZoneConfidence = v
	}
	if v, ok := intField(m, "zone_expiry_seconds"); ok {
		s.ZoneExpirySeconds = v
	}
	if v, ok := intField(m, "hover_threshold_ms"); ok {
		s.HoverThresholdMs = v
	}
	if v, ok := floatField(m, "motion_speed_pixels_per_sec"); ok {
		s.MotionSpeedPixelsPerSec = v
	}
	if v, ok := floatField(m, "step_delay_seconds"); ok {
		s.StepDelaySeconds = v
	}
	if v, ok := floatField(m, "api_timeout_vision_seconds"); ok {
		s.APITimeoutVisionSeconds = v
	}
	if v, ok := floatField(m, "api_timeout_text_seconds"); ok {
		s.APITimeoutTextSeconds = v
	}
	if v, ok := intField(m, "api_max_retries"); ok {
		s.APIMaxRetries = v
	}
	if v, ok := floatField(m, "api_backoff_base_seconds"); ok {
		s.APIBackoffBaseSeconds = v
	}
	if v, ok := intField(m, "max_api_calls"); ok {
		s.MaxAPICalls = v
	}
	if v, ok := intField(m, "max_replans"); ok {
		s.MaxReplans = v
	}
	if v, ok := intField(m, "max_step_retries"); ok {
		s.MaxStepRetries = v
	}
	if v, ok := m["recording_enabled"].(bool); ok {
		s.RecordingEnabled = v
	}
	if v, ok := m["session_dir"].(string); ok {
		s.SessionDir = v
	}
	if v, ok := m["recapture_keywords"].([]string); ok {
		s.RecaptureKeywords = append([]string(nil), v...)
	}
	if v, ok := m["history_db_path"].(string); ok {
		s.HistoryDBPath = v
	}
	if v, ok := m["log_level"].(string); ok {
		s.LogLevel = v
	}
	if v, ok := m["log_format"].(string); ok {
		s.LogFormat = v
	}
	if v, ok := m["vision_provider"].(string); ok {
		s.VisionProvider = v
	}
	if v, ok := m["task_planner_provider"].(string); ok {
		s.TaskPlannerProvider = v
	}
	if v, ok := m["idle_tick_cron"].(string); ok {
		s.IdleTickCron = v
	}
	if v, ok := m["otlp_endpoint"].(string); ok {
		s.OTLPEndpoint = v
	}
	return s
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
