package log

// Config controls the package logger. Zero values fall back to info-level
// text logging on stdout.
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`   // trace / debug / info / warn / error
	Format string     `mapstructure:"format" yaml:"format"` // text / json
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig enables an additional rotating file appender.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}
