package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	ClickUp    ClickUpConfig    `yaml:"clickup"`
	BigQuery   BigQueryConfig   `yaml:"bigquery"`
	Journal    JournalConfig    `yaml:"journal"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ClickUpConfig struct {
	APIToken          string `yaml:"api_token"`
	WorkspaceID       string `yaml:"workspace_id"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type BigQueryConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Dataset         string `yaml:"dataset"`
	Table           string `yaml:"table"`
	Location        string `yaml:"location"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variables are substituted into the raw YAML before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv fills the process-boundary values from the environment when the
// YAML leaves them empty.
func (c *Config) applyEnv() {
	if c.ClickUp.APIToken == "" {
		c.ClickUp.APIToken = os.Getenv("CLICKUP_API_TOKEN")
	}
	if c.ClickUp.WorkspaceID == "" {
		c.ClickUp.WorkspaceID = os.Getenv("CLICKUP_WORKSPACE_ID")
	}
	if c.BigQuery.ProjectID == "" {
		c.BigQuery.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if c.BigQuery.CredentialsFile == "" {
		c.BigQuery.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

func (c *Config) Validate() error {
	if c.ClickUp.APIToken == "" {
		return errors.New("clickup api token is required")
	}
	if c.ClickUp.WorkspaceID == "" {
		return errors.New("clickup workspace id is required")
	}
	if c.BigQuery.ProjectID == "" {
		return errors.New("bigquery project id is required")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.enabled requires journal.path")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "clicksync"
	}
	if c.ClickUp.BaseURL == "" {
		c.ClickUp.BaseURL = "https://api.clickup.com/api/v2"
	}
	if c.ClickUp.RequestsPerMinute == 0 {
		c.ClickUp.RequestsPerMinute = 100
	}
	if c.BigQuery.Dataset == "" {
		c.BigQuery.Dataset = "clickup_data"
	}
	if c.BigQuery.Table == "" {
		c.BigQuery.Table = "tasks"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
