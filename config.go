package mempool

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/pavanmanishd/mempool/internal/align"
)

// EnvPrefix is the environment prefix read by LoadConfig.
const EnvPrefix = "MEMPOOL"

// Policy names accepted in Config.Policy.
const (
	PolicyHeap = "heap"
	PolicyMmap = "mmap"
)

// Config describes a factory and the default shape of its pools.
type Config struct {
	Policy        string `envconfig:"POLICY" default:"heap"`
	InitialSize   int    `envconfig:"INITIAL_SIZE" default:"4096"`
	IncrementSize int    `envconfig:"INCREMENT_SIZE" default:"4096"`
	Alignment     int    `envconfig:"ALIGNMENT"`
	Budget        int    `envconfig:"BUDGET"`
	CacheCapacity int    `envconfig:"CACHE_CAPACITY"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Policy:        PolicyHeap,
		InitialSize:   DefaultBlockSize,
		IncrementSize: DefaultBlockSize,
		LogLevel:      "info",
	}
}

// LoadConfig reads MEMPOOL_* environment variables and validates them.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("mempool: load config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations no factory can be built from.
func (c Config) Validate() error {
	switch c.Policy {
	case PolicyHeap, PolicyMmap:
	default:
		return fmt.Errorf("mempool: unknown policy %q", c.Policy)
	}
	if c.InitialSize <= 0 || c.IncrementSize < 0 {
		return fmt.Errorf("%w: initial=%d increment=%d", ErrInvalidSize, c.InitialSize, c.IncrementSize)
	}
	if c.Alignment != 0 && !align.IsPowerOfTwo(c.Alignment) {
		return fmt.Errorf("%w: %d", ErrInvalidAlignment, c.Alignment)
	}
	if c.Budget < 0 || c.CacheCapacity < 0 {
		return fmt.Errorf("%w: budget=%d cache=%d", ErrInvalidSize, c.Budget, c.CacheCapacity)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("mempool: %w", err)
	}
	return nil
}

// NewFactoryFromConfig builds a factory from cfg and applies its log level
// to the package logger.
func NewFactoryFromConfig(cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lvl, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(lvl)

	var policy Policy = HeapPolicy{}
	if cfg.Policy == PolicyMmap {
		policy = NewMmapPolicy()
	}
	if cfg.Budget > 0 {
		policy = NewLimitPolicy(policy, cfg.Budget)
	}

	var opts []FactoryOption
	if cfg.Alignment > 0 {
		opts = append(opts, WithDefaultAlignment(cfg.Alignment))
	}
	if cfg.CacheCapacity > 0 {
		opts = append(opts, WithCaching(cfg.CacheCapacity))
	}
	return NewFactory(policy, opts...), nil
}

// NewPool creates a pool with the configured initial and increment sizes.
func (c Config) NewPool(f *Factory, name string, opts ...PoolOption) (*Pool, error) {
	return f.NewPool(name, c.InitialSize, c.IncrementSize, opts...)
}
