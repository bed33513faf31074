package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version          string            `mapstructure:"version"`
	ProjectRoot      string            `mapstructure:"project_root"`
	DataDir          string            `mapstructure:"data_dir"`
	Theme            string            `mapstructure:"theme"`
	LogLevel         string            `mapstructure:"log_level"`
	LogFormat        string            `mapstructure:"log_format"`
	EnableCache      bool              `mapstructure:"enable_cache"`
	ReadFileMaxChars int               `mapstructure:"read_file_max_chars"`
	Diagnostics      DiagnosticsConfig `mapstructure:"diagnostics"`
	Network          NetworkConfig     `mapstructure:"network"`
	Terminal         TerminalConfig    `mapstructure:"terminal"`
}

// DiagnosticsConfig tunes the post-edit diagnostics check.
type DiagnosticsConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NetworkConfig configures the URL reader and the web search client.
type NetworkConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	SearchURL string        `mapstructure:"search_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TerminalConfig configures run_terminal_command.
type TerminalConfig struct {
	Shell   string        `mapstructure:"shell"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:          "1.3.0",
	ProjectRoot:      "",
	DataDir:          "",
	Theme:            "dracula",
	LogLevel:         "info",
	LogFormat:        "text",
	EnableCache:      true,
	ReadFileMaxChars: 30000,
	Diagnostics: DiagnosticsConfig{
		SettleDelay: 500 * time.Millisecond,
		Timeout:     1500 * time.Millisecond,
	},
	Network: NetworkConfig{
		UserAgent: "ai-code-editor/1.3",
		SearchURL: "https://html.duckduckgo.com/html/",
		Timeout:   20 * time.Second,
	},
	Terminal: TerminalConfig{
		Shell:   "bash",
		Timeout: 2 * time.Minute,
	},
}

// configName is the base name looked up in the working directory.
const configName = "ai-code-editor-config"

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	v.SetEnvPrefix("AI_EDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !asNotFound(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.normalize(cwd); err != nil {
		return nil, err
	}
	return &config, nil
}

// normalize resolves relative paths and fills in derived defaults.
func (c *Config) normalize(cwd string) error {
	if c.ProjectRoot != "" && !filepath.IsAbs(c.ProjectRoot) {
		c.ProjectRoot = filepath.Join(cwd, c.ProjectRoot)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".local", "share", "ai-code-editor")
	} else if !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(cwd, c.DataDir)
	}
	if c.ReadFileMaxChars <= 0 {
		c.ReadFileMaxChars = DefaultConfig.ReadFileMaxChars
	}
	if c.Diagnostics.Timeout < c.Diagnostics.SettleDelay {
		c.Diagnostics.Timeout = c.Diagnostics.SettleDelay
	}
	return nil
}

// DatabasePath is where the sqlite store lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "editor.sqlite")
}

// CacheDir is where the analyzer cache lives.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("project_root", DefaultConfig.ProjectRoot)
	v.SetDefault("data_dir", DefaultConfig.DataDir)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("log_format", DefaultConfig.LogFormat)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("read_file_max_chars", DefaultConfig.ReadFileMaxChars)
	v.SetDefault("diagnostics.settle_delay", DefaultConfig.Diagnostics.SettleDelay)
	v.SetDefault("diagnostics.timeout", DefaultConfig.Diagnostics.Timeout)
	v.SetDefault("network.user_agent", DefaultConfig.Network.UserAgent)
	v.SetDefault("network.search_url", DefaultConfig.Network.SearchURL)
	v.SetDefault("network.timeout", DefaultConfig.Network.Timeout)
	v.SetDefault("terminal.shell", DefaultConfig.Terminal.Shell)
	v.SetDefault("terminal.timeout", DefaultConfig.Terminal.Timeout)
}

// bindEnv explicitly binds the short environment names kept for compatibility.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("project_root", "AI_EDITOR_PROJECT_ROOT", "PROJECT_ROOT")
	_ = v.BindEnv("data_dir", "AI_EDITOR_DATA_DIR")
	_ = v.BindEnv("theme", "AI_EDITOR_THEME", "THEME")
	_ = v.BindEnv("log_level", "AI_EDITOR_LOG_LEVEL")
	_ = v.BindEnv("enable_cache", "AI_EDITOR_ENABLE_CACHE", "ENABLE_CACHE")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("project_root", flags.Lookup("project"))
	_ = v.BindPFlag("data_dir", flags.Lookup("data_dir"))
	_ = v.BindPFlag("theme", flags.Lookup("theme"))
	_ = v.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log_format"))
	_ = v.BindPFlag("enable_cache", flags.Lookup("enable_cache"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().StringP("project", "p", DefaultConfig.ProjectRoot, "The project folder the tools operate on. Leave empty to run without an open project.")
	rootCmd.PersistentFlags().String("data_dir", DefaultConfig.DataDir, "Directory holding the checkpoint database and caches (default ~/.local/share/ai-code-editor).")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Chroma style used when printing highlighted output (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: debug, info, warn, error.")
	rootCmd.PersistentFlags().String("log_format", DefaultConfig.LogFormat, "Log format: text or json.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the syntax analysis cache")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}

func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	nf, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = nf
	}
	return ok
}
