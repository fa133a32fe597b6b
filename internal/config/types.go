package config

import "time"

// CompileConfig describes one compile job, usually read from compile.yml
type CompileConfig struct {
	Datasets []DatasetConfig `yaml:"datasets" validate:"required,min=1,unique=Path,dive"`
	Workers  int             `yaml:"workers" validate:"gte=0"`
	Output   OutputConfig    `yaml:"output"`
	Persist  bool            `yaml:"persist"`
	Cache    CacheConfig     `yaml:"cache"`
	API      APIConfig       `yaml:"api"`
}

// DatasetConfig is a NeTEx source, a single XML document or a zip archive.
// An empty name defaults to the file name.
type DatasetConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path" validate:"required"`
}

// OutputConfig is where the compiled snapshot is written
type OutputConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Format string `yaml:"format" validate:"omitempty,oneof=msgpack json"`
}

// CacheConfig controls the redis snapshot cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gte=0"`
}

// APIConfig configures the inspection API
type APIConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}
