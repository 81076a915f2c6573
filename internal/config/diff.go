package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// Hot-reloadable pipeline settings.
	DetectionChanged   bool
	TranslationChanged bool
	RecordingChanged   bool
	SpeechChanged      bool

	// Settings that only take effect after a restart. They are reported
	// so the operator can be warned.
	ServerChanged      bool
	ProvidersChanged   bool
	RecognitionChanged bool
	ReportsChanged     bool
	EventsChanged      bool
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool { return d == ConfigDiff{} }

// RestartRequired reports whether any change cannot be applied live.
func (d ConfigDiff) RestartRequired() bool {
	return d.ServerChanged || d.ProvidersChanged || d.RecognitionChanged || d.ReportsChanged || d.EventsChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{
		DetectionChanged:   !reflect.DeepEqual(old.Detection, new.Detection),
		TranslationChanged: !reflect.DeepEqual(old.Translation, new.Translation),
		RecordingChanged:   old.Recording != new.Recording,
		SpeechChanged:      old.Speech != new.Speech,
		ProvidersChanged:   !reflect.DeepEqual(old.Providers, new.Providers),
		RecognitionChanged: !reflect.DeepEqual(old.Recognition, new.Recognition),
		ReportsChanged:     old.Reports != new.Reports,
		EventsChanged:      !reflect.DeepEqual(old.Events, new.Events),
	}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	d.ServerChanged = !reflect.DeepEqual(oldServer, newServer)
	return d
}
