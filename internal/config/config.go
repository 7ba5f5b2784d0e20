// Package config holds the codemode control plane configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klubi/codemode/pkg/codemode"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Exec   ExecConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port int    // default 7171
	Host string // default "127.0.0.1"
}

type StoreConfig struct {
	Type    string // "bolt" or "memory"
	DataDir string // default "~/.codemode/data"
}

// ExecConfig configures the execution pipeline shared by server-side
// runs and the local `run` command.
type ExecConfig struct {
	AgentBin          string // completion-agent binary (default: "claude", resolved via PATH)
	PythonBin         string // fallback interpreter (default: "python3")
	TimeoutSeconds    int    // default 300 (seconds)
	WorkspaceDir      string // empty = fresh temp dir per run
	PreserveWorkspace bool
	Verbose           bool
}

type LogConfig struct {
	Level  string // default "info"
	Format string // default "console"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7171,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Type:    "bolt",
			DataDir: defaultDataDir(),
		},
		Exec: ExecConfig{
			AgentBin:       codemode.DefaultAgentPath,
			PythonBin:      codemode.DefaultPythonPath,
			TimeoutSeconds: 300,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the BoltDB file (DataDir + "/codemode.db").
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.DataDir, "codemode.db")
}

// CodemodeConfig maps the exec settings onto a pipeline Config.
func (c *Config) CodemodeConfig() codemode.Config {
	return codemode.Config{
		WorkspaceDir:      c.Exec.WorkspaceDir,
		AgentPath:         c.Exec.AgentBin,
		PythonPath:        c.Exec.PythonBin,
		Timeout:           time.Duration(c.Exec.TimeoutSeconds) * time.Second,
		Verbose:           c.Exec.Verbose,
		PreserveWorkspace: c.Exec.PreserveWorkspace,
	}
}

// defaultDataDir resolves the default data directory.
// It uses os.UserHomeDir() + "/.codemode/data", falling back to
// "/tmp/codemode/data" if the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "codemode", "data")
	}
	return filepath.Join(home, ".codemode", "data")
}
