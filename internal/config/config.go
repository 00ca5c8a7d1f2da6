package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultProvider              = "openai"
	DefaultModel                 = "gpt-4o-mini"
	DefaultMaxInvocationsPerTurn = 50
	defaultShellTimeout          = 120 * time.Second
	defaultFetchTimeout          = 10 * time.Second
)

// ErrNoCredentials means the active profile cannot authenticate with its
// provider. It is fatal: nothing may be started without credentials.
var ErrNoCredentials = errors.New("no usable model credentials")

// Providers lists the supported provider names.
var Providers = []string{"openai", "azure", "groq", "openrouter", "deepseek", "anthropic", "ollama", "mistral", "cohere"}

// localProviders run without an API key.
var localProviders = map[string]bool{
	"ollama": true,
}

type Profile struct {
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=openai azure groq openrouter deepseek anthropic ollama mistral cohere"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty" validate:"omitempty,url"`
	Model    string `json:"model" validate:"required"`
}

// ProviderName returns the provider, defaulting to openai.
func (p Profile) ProviderName() string {
	if p.Provider == "" {
		return DefaultProvider
	}
	return p.Provider
}

// Settings tunes the agent loop and its tools.
type Settings struct {
	NotepadPath            string `json:"notepad_path,omitempty"`
	CheckpointDir          string `json:"checkpoint_dir,omitempty"`
	LogPath                string `json:"log_path,omitempty"`
	ShellTimeoutSeconds    int    `json:"shell_timeout_seconds,omitempty" validate:"gte=0"`
	FetchTimeoutSeconds    int    `json:"fetch_timeout_seconds,omitempty" validate:"gte=0"`
	ApprovalTimeoutSeconds int    `json:"approval_timeout_seconds,omitempty" validate:"gte=0"`
	MaxInvocationsPerTurn  int    `json:"max_invocations_per_turn,omitempty" validate:"gte=0"`
}

type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`
	Settings      Settings           `json:"settings"`

	currentProfile *Profile
	overrides      envOverrides
	dir            string
}

// envOverrides are read from the environment on every load and never saved.
type envOverrides struct {
	Profile   string `env:"SWI_PROFILE"`
	Provider  string `env:"SWI_PROVIDER"`
	APIKey    string `env:"SWI_API_KEY"`
	BaseURL   string `env:"SWI_BASE_URL"`
	Model     string `env:"SWI_MODEL"`
	Notepad   string `env:"SWI_NOTEPAD"`
	OpenAIKey string `env:"OPENAI_API_KEY"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.dir = filepath.Dir(configPath)

	if err := env.Parse(&config.overrides); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if config.overrides.Profile != "" {
		config.ActiveProfile = config.overrides.Profile
	}

	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	return config, nil
}

// UseProfile selects the profile for this process without saving it.
func (c *Config) UseProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.ActiveProfile = name
	return c.setCurrentProfile()
}

// Current returns the active profile with environment overrides applied.
func (c *Config) Current() Profile {
	var p Profile
	if c.currentProfile != nil {
		p = *c.currentProfile
	}
	o := c.overrides
	if o.Provider != "" {
		p.Provider = o.Provider
	}
	if o.APIKey != "" {
		p.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		p.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		p.Model = o.Model
	}
	if p.APIKey == "" && p.ProviderName() == "openai" {
		p.APIKey = o.OpenAIKey
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	p.Provider = p.ProviderName()
	return p
}

// Validate checks the active profile and settings. Missing credentials are
// reported as ErrNoCredentials.
func (c *Config) Validate() error {
	if c.currentProfile == nil {
		return fmt.Errorf("%w: no active profile", ErrNoCredentials)
	}
	p := c.Current()
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile '%s': %w", c.ActiveProfile, err)
	}
	if err := validate.Struct(c.Settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if p.APIKey == "" && !localProviders[p.Provider] {
		return fmt.Errorf("%w: profile '%s' has no API key for provider %s", ErrNoCredentials, c.ActiveProfile, p.Provider)
	}
	return nil
}

// ValidateProfile checks a profile before it is saved.
func ValidateProfile(p Profile) error {
	return validate.Struct(p)
}

func (c *Config) IsValid() bool {
	return c.Validate() == nil
}

func (c *Config) GetAPIKey() string {
	return c.Current().APIKey
}

func (c *Config) GetModel() string {
	return c.Current().Model
}

func (c *Config) GetBaseURL() string {
	return c.Current().BaseURL
}

// ProfileNames returns profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir is the directory holding config.json, the log and the default notepad.
func (c *Config) Dir() string {
	return c.dir
}

func (c *Config) NotepadPath() string {
	switch {
	case c.overrides.Notepad != "":
		return c.overrides.Notepad
	case c.Settings.NotepadPath != "":
		return c.Settings.NotepadPath
	default:
		return filepath.Join(c.dir, "notepad.md")
	}
}

func (c *Config) LogPath() string {
	if c.Settings.LogPath != "" {
		return c.Settings.LogPath
	}
	return filepath.Join(c.dir, "swi.log")
}

// CheckpointDir is empty when conversations are kept in memory only.
func (c *Config) CheckpointDir() string {
	return c.Settings.CheckpointDir
}

func (c *Config) ShellTimeout() time.Duration {
	return secondsOr(c.Settings.ShellTimeoutSeconds, defaultShellTimeout)
}

func (c *Config) FetchTimeout() time.Duration {
	return secondsOr(c.Settings.FetchTimeoutSeconds, defaultFetchTimeout)
}

// ApprovalTimeout is zero when approvals wait indefinitely.
func (c *Config) ApprovalTimeout() time.Duration {
	return secondsOr(c.Settings.ApprovalTimeoutSeconds, 0)
}

func (c *Config) MaxInvocationsPerTurn() int {
	if c.Settings.MaxInvocationsPerTurn > 0 {
		return c.Settings.MaxInvocationsPerTurn
	}
	return DefaultMaxInvocationsPerTurn
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getConfigPath() (string, error) {
	var configDir string

	// Use SWI_HOME if set, otherwise use user's home directory
	if home := os.Getenv("SWI_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".swi", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	return &config, nil
}

// DefaultProfile is the placeholder written on first run.
func DefaultProfile() Profile {
	return Profile{Provider: DefaultProvider, Model: DefaultModel}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": DefaultProfile(),
		},
		ActiveProfile: "default",
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}
	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile by name
		c.ActiveProfile = c.ProfileNames()[0]
		profile = c.Profiles[c.ActiveProfile]
	}

	c.currentProfile = &profile
	return nil
}
