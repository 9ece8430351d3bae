package config

// Config represents the complete flowmark configuration.
// It can be loaded from .flowmark/config.yml with environment variable overrides.
type Config struct {
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Annotate AnnotateConfig `yaml:"annotate" mapstructure:"annotate"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	VFCSuffix       string `yaml:"vfc_suffix" mapstructure:"vfc_suffix"`             // appended to the input path for the transcript
	AnnotatedSuffix string `yaml:"annotated_suffix" mapstructure:"annotated_suffix"` // empty means batch/watch skip the annotated file
}

// AnnotateConfig tunes the marker injection stage.
type AnnotateConfig struct {
	NormalizeEmphasis bool `yaml:"normalize_emphasis" mapstructure:"normalize_emphasis"`
	SkipExisting      bool `yaml:"skip_existing" mapstructure:"skip_existing"`
}

// PathsConfig defines which files batch and watch convert.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for sources
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// CacheConfig sizes the in-memory result cache. Zero disables it.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			VFCSuffix:       ".vfc",
			AnnotatedSuffix: "",
		},
		Annotate: AnnotateConfig{
			NormalizeEmphasis: true,
			SkipExisting:      false,
		},
		Paths: PathsConfig{
			Include: []string{"**/*.py"},
			Ignore: []string{
				".git/**",
				"venv/**",
				".venv/**",
				"__pycache__/**",
				"build/**",
				"dist/**",
				"*.pyc",
			},
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
		Cache: CacheConfig{
			MaxEntries: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SourceExtensions extracts unique file extensions from the include patterns.
// Returns extensions with leading dot (e.g., []string{".py"}).
func (c *Config) SourceExtensions() []string {
	seen := make(map[string]bool)
	extensions := []string{}
	for _, pattern := range c.Paths.Include {
		ext := extractExtension(pattern)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		extensions = append(extensions, ext)
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Examples: "**/*.py" -> ".py", "*.pyi" -> ".pyi"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
