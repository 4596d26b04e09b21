// Package config defines the viewer configuration and how it is loaded.
package config

// Tracking sources.
const (
	SourceSynthetic = "synthetic"
	SourceReplay    = "replay"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FPS is the update/draw rate of the viewer loop.
	FPS int `koanf:"fps"`

	// Source selects the tracking provider: synthetic or replay.
	Source string `koanf:"source"`

	// SyntheticUsers is the number of figures in the synthetic scene.
	SyntheticUsers int `koanf:"synthetic_users"`

	// ReplaySession is the session id played back when Source is replay.
	ReplaySession string `koanf:"replay_session"`

	// ReplayLoop restarts playback when the session ends.
	ReplayLoop bool `koanf:"replay_loop"`

	// DataDir holds the session database. Empty means ~/.depthview.
	DataDir string `koanf:"data_dir"`

	// StaticDir serves a web UI when set.
	StaticDir string `koanf:"static_dir"`

	// Record starts recording a session as soon as the viewer runs.
	Record bool `koanf:"record"`

	// JointRadius is the radius of drawn joints in pixels.
	JointRadius int `koanf:"joint_radius"`

	// PerUserColors draws every user in a different colour.
	PerUserColors bool `koanf:"per_user_colors"`

	// Labels draws user ids next to each skeleton.
	Labels bool `koanf:"labels"`

	// Tray shows the system tray menu.
	Tray bool `koanf:"tray"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Addr:           ":8080",
		FPS:            30,
		Source:         SourceSynthetic,
		SyntheticUsers: 2,
		ReplayLoop:     true,
		JointRadius:    3,
	}
}
