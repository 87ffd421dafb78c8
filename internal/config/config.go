package config

import (
	"errors"
	"fmt"
	"hotfolder/internal/model"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	fileName   = "config"
	fileType   = "yaml"
	envPrefix  = "HOTFOLDER"
	iniSection = "Directory"
)

// DirectoryConfig mirrors the [Directory] section of the legacy config.ini.
type DirectoryConfig struct {
	HFPath    string `mapstructure:"hfPath"`
	DestPath  string `mapstructure:"destPath"`
	MoveFiles bool   `mapstructure:"moveFiles"`
}

type Config struct {
	Directory     DirectoryConfig `mapstructure:"directory"`
	DaemonPort    int             `mapstructure:"daemon_port"`
	BufferSize    int             `mapstructure:"buffer_size"`
	StatusHistory int             `mapstructure:"status_history"`
	DBPath        string          `mapstructure:"db_path"`
	StartOnLaunch bool            `mapstructure:"start_on_launch"`

	Dir string `mapstructure:"-"`
}

var Default = Config{
	Directory: DirectoryConfig{
		MoveFiles: true,
	},
	DaemonPort:    9101,
	BufferSize:    100,
	StatusHistory: 200,
	DBPath:        "hotfolder.db",
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	return LoadFrom(filepath.Join(home, ".hotfolder"))
}

// LoadFrom reads configDir/config.yaml, falling back to defaults and
// HOTFOLDER_* environment variables.
func LoadFrom(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	desktop := DesktopDir()

	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(configDir)

	v.SetDefault("directory.hfPath", desktop)
	v.SetDefault("directory.destPath", desktop)
	v.SetDefault("directory.moveFiles", Default.Directory.MoveFiles)
	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("buffer_size", Default.BufferSize)
	v.SetDefault("status_history", Default.StatusHistory)
	v.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	v.SetDefault("start_on_launch", Default.StartOnLaunch)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ok := errors.As(err, &notFound); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = configDir

	return &cfg, nil
}

// Save writes cfg to its directory as config.yaml.
func (c *Config) Save() error {
	if c.Dir == "" {
		return errors.New("config has no directory")
	}

	v := viper.New()
	v.SetConfigType(fileType)
	v.Set("directory.hfPath", c.Directory.HFPath)
	v.Set("directory.destPath", c.Directory.DestPath)
	v.Set("directory.moveFiles", c.Directory.MoveFiles)
	v.Set("daemon_port", c.DaemonPort)
	v.Set("buffer_size", c.BufferSize)
	v.Set("status_history", c.StatusHistory)
	v.Set("db_path", c.DBPath)
	v.Set("start_on_launch", c.StartOnLaunch)

	path := filepath.Join(c.Dir, fileName+"."+fileType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Set updates one user-facing setting by name: root, dest, mode or
// start_on_launch.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "root", "hfpath":
		c.Directory.HFPath = value
	case "dest", "destpath":
		c.Directory.DestPath = value
	case "mode":
		mode, err := model.ParseTransferMode(value)
		if err != nil {
			return err
		}
		c.Directory.MoveFiles = mode == model.ModeMove
	case "movefiles":
		move, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid moveFiles value %q: %w", value, err)
		}
		c.Directory.MoveFiles = move
	case "start_on_launch":
		start, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid start_on_launch value %q: %w", value, err)
		}
		c.StartOnLaunch = start
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	return nil
}

// ImportINI copies the [Directory] section of a legacy config.ini into c.
// Empty values keep the current setting.
func (c *Config) ImportINI(path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !f.HasSection(iniSection) {
		return fmt.Errorf("%s has no [%s] section", path, iniSection)
	}
	sec := f.Section(iniSection)

	if v := sec.Key("hfPath").String(); v != "" {
		c.Directory.HFPath = v
	}
	if v := sec.Key("destPath").String(); v != "" {
		c.Directory.DestPath = v
	}
	if sec.HasKey("moveFiles") {
		c.Directory.MoveFiles = sec.Key("moveFiles").MustBool(true)
	}

	return nil
}

func (c *Config) WatchConfig() model.WatchConfig {
	return model.WatchConfig{
		Root:      c.Directory.HFPath,
		Recursive: true,
	}
}

func (c *Config) TransferConfig() model.TransferConfig {
	return model.TransferConfig{
		DestDir: c.Directory.DestPath,
		Mode:    model.ModeFromMoveFlag(c.Directory.MoveFiles),
	}
}

func DesktopDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, "Desktop")
}
