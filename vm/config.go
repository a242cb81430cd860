package vm

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultPageSize matches the block size of the backing store
	DefaultPageSize = 4096

	// DefaultDiskFile is the backing store created for each run
	DefaultDiskFile = "myvirtualdisk"
)

// Config holds simulator configuration
type Config struct {
	// Geometry
	Pages    int `json:"pages"`     // Number of virtual pages
	Frames   int `json:"frames"`    // Number of physical frames
	PageSize int `json:"page_size"` // Page and block size in bytes

	// Policy and workload
	Policy  string `json:"policy"`  // Replacement policy (rand, fifo, custom)
	Program string `json:"program"` // Workload (sort, scan, focus)
	Seed    int64  `json:"seed"`    // Seed for the random replacement policy

	// Backing store
	DiskFile     string `json:"disk_file"`     // Path of the virtual disk
	BackingStore string `json:"backing_store"` // Disk access mode (file, mmap)
	Compression  string `json:"compression"`   // Block compression (none, lz4, snappy)

	// Diagnostics
	EnableMetrics bool   `json:"enable_metrics"`  // Log fault statistics at the end of a run
	DumpPageTable bool   `json:"dump_page_table"` // Print the page table after the run
	LogLevel      string `json:"log_level"`       // Log level (debug, info, warn, error)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Pages:         100,
		Frames:        10,
		PageSize:      DefaultPageSize,
		Policy:        string(PolicyFIFO),
		Program:       "scan",
		Seed:          1,
		DiskFile:      DefaultDiskFile,
		BackingStore:  "file",
		Compression:   "none",
		EnableMetrics: false,
		DumpPageTable: false,
		LogLevel:      "warn",
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	err = json.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from environment variables
// Falls back to default values if environment variables are not set
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()
	config.ApplyEnv()
	return config
}

// ApplyEnv overrides fields that have a VIRTMEM_* variable set
func (c *Config) ApplyEnv() {
	if val := os.Getenv("VIRTMEM_PAGE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.PageSize = size
		}
	}

	if val := os.Getenv("VIRTMEM_SEED"); val != "" {
		if seed, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Seed = seed
		}
	}

	// Backing store
	if val := os.Getenv("VIRTMEM_DISK_FILE"); val != "" {
		c.DiskFile = val
	}

	if val := os.Getenv("VIRTMEM_BACKING_STORE"); val != "" {
		c.BackingStore = val
	}

	if val := os.Getenv("VIRTMEM_COMPRESSION"); val != "" {
		c.Compression = val
	}

	// Diagnostics
	if val := os.Getenv("VIRTMEM_ENABLE_METRICS"); val != "" {
		c.EnableMetrics = val == "true" || val == "1"
	}

	if val := os.Getenv("VIRTMEM_DUMP_PAGE_TABLE"); val != "" {
		c.DumpPageTable = val == "true" || val == "1"
	}

	if val := os.Getenv("VIRTMEM_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	const op = "Config.Validate"

	if c.Pages <= 0 {
		return ErrInvalidConfig(op, fmt.Sprintf("number of pages must be positive, got %d", c.Pages))
	}

	if c.Frames <= 0 {
		return ErrInvalidConfig(op, fmt.Sprintf("number of frames must be positive, got %d", c.Frames))
	}

	if c.PageSize <= 0 || c.PageSize%512 != 0 {
		return ErrInvalidConfig(op, fmt.Sprintf("page size must be a positive multiple of 512, got %d", c.PageSize))
	}

	if _, err := ParsePolicy(c.Policy); err != nil {
		return ErrUnknownPolicy(op, c.Policy)
	}

	switch c.Program {
	case "sort":
		// sort swaps bytes across two pages at once
		if c.Frames < 2 {
			return ErrInvalidConfig(op, "nFrames >= 2 for sort program")
		}
	case "scan", "focus":
	default:
		return ErrUnknownProgram(op, c.Program)
	}

	if c.DiskFile == "" {
		return ErrInvalidConfig(op, "disk file cannot be empty")
	}

	if c.BackingStore != "file" && c.BackingStore != "mmap" {
		return ErrInvalidConfig(op, fmt.Sprintf("invalid backing store: %s (must be file or mmap)", c.BackingStore))
	}

	if _, err := ParseCompressionType(c.Compression); err != nil {
		return ErrInvalidConfig(op, err.Error())
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return ErrInvalidConfig(op, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
