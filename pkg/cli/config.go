package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name.
	DefaultBaseDir = ".audiofocus"
	// DefaultConfigFile is the default configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Config is the configuration file of a CLI app.
type Config struct {
	// AppName is the application name, e.g. "focusctl".
	AppName string `yaml:"-"`

	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named set of settings.
type Context struct {
	Name string `yaml:"name"`

	// JournalDir is the badger directory of the focus journal. Empty means
	// <app dir>/data/journal.
	JournalDir string `yaml:"journal_dir,omitempty"`

	// Listen is the address of the event server, e.g. ":8740".
	Listen string `yaml:"listen,omitempty"`

	// AllowFocusManagement is the default policy gate for simulated apps.
	AllowFocusManagement *bool `yaml:"allow_focus_management,omitempty"`

	// DelayedGain lets the manager delay requests while locked.
	DelayedGain *bool `yaml:"delayed_gain,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// DefaultListen is used when a context has no listen address.
const DefaultListen = "127.0.0.1:8740"

// LoadConfig loads or creates the configuration of appName.
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigIfExists loads the default configuration of appName without
// creating it. It returns nil if the file does not exist or cannot be read.
func LoadConfigIfExists(appName string) *Config {
	paths, err := NewPaths(appName)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(paths.ConfigFile()); err != nil {
		return nil
	}
	cfg, err := LoadConfigWithPath(appName, paths.ConfigFile())
	if err != nil {
		return nil
	}
	return cfg
}

// LoadConfigWithPath loads configuration from customPath, or from the default
// location if customPath is empty.
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context and saves.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return fmt.Errorf("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext makes name the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns the named context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one if name is
// empty. Without a current context it returns an empty default context.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext == "" {
		return &Context{}, nil
	}
	return c.GetContext(c.CurrentContext)
}

// ListContexts returns the context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// JournalPath returns the journal directory, resolved against the config
// directory.
func (c *Config) JournalPath(ctx *Context) string {
	if ctx != nil && ctx.JournalDir != "" {
		if filepath.IsAbs(ctx.JournalDir) {
			return ctx.JournalDir
		}
		return filepath.Join(c.Dir(), ctx.JournalDir)
	}
	return filepath.Join(c.Dir(), "data", "journal")
}

// Allow returns the policy gate, defaulting to true.
func (ctx *Context) Allow() bool {
	return ctx.AllowFocusManagement == nil || *ctx.AllowFocusManagement
}

// Delayed returns whether delayed gain is enabled, defaulting to true.
func (ctx *Context) Delayed() bool {
	return ctx.DelayedGain == nil || *ctx.DelayedGain
}

// ListenAddr returns the listen address or DefaultListen.
func (ctx *Context) ListenAddr() string {
	if ctx.Listen == "" {
		return DefaultListen
	}
	return ctx.Listen
}

// Level returns the slog level of the context, defaulting to info.
func (ctx *Context) Level() slog.Level {
	lvl, err := ParseLevel(ctx.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}
