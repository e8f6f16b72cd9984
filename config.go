package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SyncParams tunes broadcast and client smoothing
type SyncParams struct {
	BroadcastHz   int     `mapstructure:"broadcastHz"`
	RenderHz      int     `mapstructure:"renderHz"`
	SnapThreshold float64 `mapstructure:"snapThreshold"`
	InterpFactor  float64 `mapstructure:"interpFactor"`
	SnapEpsilon   float64 `mapstructure:"snapEpsilon"`
}

// DefaultSync returns the stock synchronizer tuning
func DefaultSync() SyncParams {
	return SyncParams{
		BroadcastHz:   50,
		RenderHz:      60,
		SnapThreshold: 100,
		InterpFactor:  0.12,
		SnapEpsilon:   0.01,
	}
}

// RelayConfig configures the relay server
type RelayConfig struct {
	Addr         string `mapstructure:"addr"`
	DBPath       string `mapstructure:"dbPath"`
	PublicURL    string `mapstructure:"publicURL"`
	MaxRooms     int    `mapstructure:"maxRooms"`
	RoomCodeLen  int    `mapstructure:"roomCodeLen"`
	MaxAvatar    int    `mapstructure:"maxAvatar"`
	MaxChatLen   int    `mapstructure:"maxChatLen"`
	MaxConnsIP   int    `mapstructure:"maxConnsPerIP"`
	MaxConns     int    `mapstructure:"maxConns"`
	MsgPerSecond int    `mapstructure:"msgPerSecond"`
}

// PeerConfig configures the headless peer
type PeerConfig struct {
	RelayURL string `mapstructure:"relayURL"`
	Name     string `mapstructure:"name"`
	KitColor string `mapstructure:"kitColor"`
	Room     string `mapstructure:"room"`
	Password string `mapstructure:"password"`
	Duration int    `mapstructure:"duration"`
	// AI starts an offline match against the bot
	AI bool `mapstructure:"ai"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the whole typed configuration
type Config struct {
	Mode    string        `mapstructure:"mode"`
	Field   Field         `mapstructure:"field"`
	Physics PhysicsParams `mapstructure:"physics"`
	AI      AIParams      `mapstructure:"ai"`
	Sync    SyncParams    `mapstructure:"sync"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Peer    PeerConfig    `mapstructure:"peer"`
	Log     LogConfig     `mapstructure:"log"`
}

// setDefaults registers every tunable on v
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "relay")

	v.SetDefault("field.width", DefaultField.Width)
	v.SetDefault("field.height", DefaultField.Height)

	ph := DefaultPhysics()
	v.SetDefault("physics.tickRate", ph.TickRate)
	v.SetDefault("physics.playerRadius", ph.PlayerRadius)
	v.SetDefault("physics.ballRadius", ph.BallRadius)
	v.SetDefault("physics.accel", ph.Accel)
	v.SetDefault("physics.playerFriction", ph.PlayerFriction)
	v.SetDefault("physics.ballFriction", ph.BallFriction)
	v.SetDefault("physics.bounceDamping", ph.BounceDamping)
	v.SetDefault("physics.kickReach", ph.KickReach)
	v.SetDefault("physics.kickForce", ph.KickForce)
	v.SetDefault("physics.passiveForce", ph.PassiveForce)
	v.SetDefault("physics.kickCooldownTicks", ph.KickCooldownTicks)
	v.SetDefault("physics.wallMargin", ph.WallMargin)
	v.SetDefault("physics.goalLineMargin", ph.GoalLineMargin)
	v.SetDefault("physics.postSpeed", ph.PostSpeed)
	v.SetDefault("physics.goalTop", ph.GoalTop)
	v.SetDefault("physics.goalBottom", ph.GoalBottom)

	ai := DefaultAI()
	v.SetDefault("ai.behindOffset", ai.BehindOffset)
	v.SetDefault("ai.deadZone", ai.DeadZone)
	v.SetDefault("ai.kickRange", ai.KickRange)
	v.SetDefault("ai.alignTolerance", ai.AlignTolerance)
	v.SetDefault("ai.ownGoalGuard", ai.OwnGoalGuard)

	sy := DefaultSync()
	v.SetDefault("sync.broadcastHz", sy.BroadcastHz)
	v.SetDefault("sync.renderHz", sy.RenderHz)
	v.SetDefault("sync.snapThreshold", sy.SnapThreshold)
	v.SetDefault("sync.interpFactor", sy.InterpFactor)
	v.SetDefault("sync.snapEpsilon", sy.SnapEpsilon)

	v.SetDefault("relay.addr", ":3000")
	v.SetDefault("relay.dbPath", "dashgoal.db")
	v.SetDefault("relay.publicURL", "http://localhost:3000")
	v.SetDefault("relay.maxRooms", 100)
	v.SetDefault("relay.roomCodeLen", 6)
	v.SetDefault("relay.maxAvatar", 100000)
	v.SetDefault("relay.maxChatLen", 200)
	v.SetDefault("relay.maxConnsPerIP", 5)
	v.SetDefault("relay.maxConns", 1000)
	v.SetDefault("relay.msgPerSecond", 120)

	v.SetDefault("peer.relayURL", "ws://localhost:3000/ws")
	v.SetDefault("peer.name", "Go Peer")
	v.SetDefault("peer.kitColor", "")
	v.SetDefault("peer.room", "")
	v.SetDefault("peer.password", "")
	v.SetDefault("peer.duration", DefaultMatchSeconds)
	v.SetDefault("peer.ai", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// NewFlagSet declares the command line flags. Flag names match config keys.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("dashgoal", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file (yaml, json or toml)")
	fs.String("mode", "relay", "relay | peer")
	fs.String("relay.addr", ":3000", "Relay HTTP listen address")
	fs.String("relay.dbPath", "dashgoal.db", "Relay SQLite database path")
	fs.String("peer.relayURL", "ws://localhost:3000/ws", "Relay websocket URL for peer mode")
	fs.String("peer.name", "Go Peer", "Player name in peer mode")
	fs.String("peer.room", "", "Room code to join; empty creates a room")
	fs.String("peer.password", "", "Room password")
	fs.Int("peer.duration", DefaultMatchSeconds, "Match length in seconds when creating a room")
	fs.Bool("peer.ai", false, "Play an offline match against the bot")
	fs.String("log.level", "info", "Log level")
	return fs
}

// LoadConfig builds the configuration from defaults, an optional config
// file, DASHGOAL_* environment variables and flags (highest precedence).
func LoadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DASHGOAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dashgoal")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would break the simulation
func (c Config) Validate() error {
	switch {
	case c.Field.Width <= 0 || c.Field.Height <= 0:
		return fmt.Errorf("field must have positive size, got %vx%v", c.Field.Width, c.Field.Height)
	case c.Physics.TickRate <= 0:
		return fmt.Errorf("physics.tickRate must be positive")
	case c.Sync.BroadcastHz <= 0:
		return fmt.Errorf("sync.broadcastHz must be positive")
	case c.Sync.InterpFactor <= 0 || c.Sync.InterpFactor > 1:
		return fmt.Errorf("sync.interpFactor must be in (0, 1], got %v", c.Sync.InterpFactor)
	case c.Sync.SnapThreshold <= 0:
		return fmt.Errorf("sync.snapThreshold must be positive")
	case c.Mode != "relay" && c.Mode != "peer":
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}
