package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         App         `mapstructure:"app"`
	Embedding   Embedding   `mapstructure:"embedding"`
	VectorIndex VectorIndex `mapstructure:"vector_index"`
	Routing     Routing     `mapstructure:"routing"`
	Gazetteer   Gazetteer   `mapstructure:"gazetteer"`
	Ranker      Ranker      `mapstructure:"ranker"`
	Clustering  Clustering  `mapstructure:"clustering"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Embedding holds Gemini embedding configuration
type Embedding struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	Timeout    string `mapstructure:"timeout"`
}

// VectorIndex holds Qdrant configuration
type VectorIndex struct {
	URL         string `mapstructure:"url"`
	APIKey      string `mapstructure:"api_key"`
	Collection  string `mapstructure:"collection"`
	SearchLimit int    `mapstructure:"search_limit"`
	Timeout     string `mapstructure:"timeout"`
}

// Routing holds OpenRouteService configuration. An empty API key means
// haversine-only routing.
type Routing struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Timeout        string `mapstructure:"timeout"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
}

// Gazetteer holds the location database configuration
type Gazetteer struct {
	FilePath       string `mapstructure:"file_path"`
	FuzzyThreshold int    `mapstructure:"fuzzy_threshold"`
}

// Ranker holds neural ranker configuration
type Ranker struct {
	WeightsPath      string  `mapstructure:"weights_path"`
	HiddenDim        int     `mapstructure:"hidden_dim"`
	NeuralWeight     float64 `mapstructure:"neural_weight"`
	SimilarityWeight float64 `mapstructure:"similarity_weight"`
}

// Clustering holds default clustering parameters
type Clustering struct {
	MaxClusterRadiusKm   float64 `mapstructure:"max_cluster_radius_km"`
	MinPerCluster        int     `mapstructure:"min_per_cluster"`
	MaxPerCluster        int     `mapstructure:"max_per_cluster"`
	DistanceWeight       float64 `mapstructure:"distance_weight"`
	DefaultAlgorithm     string  `mapstructure:"default_algorithm"`
	MaxDailyTravelHours  float64 `mapstructure:"max_daily_travel_hours"`
	VectorSearchCandidates int   `mapstructure:"vector_search_candidates"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".exploresl")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	// Embedding defaults
	viper.SetDefault("embedding.model", "text-embedding-004")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.timeout", "30s")

	// Vector index defaults
	viper.SetDefault("vector_index.url", "http://localhost:6333")
	viper.SetDefault("vector_index.collection", "exploresl")
	viper.SetDefault("vector_index.search_limit", 100)
	viper.SetDefault("vector_index.timeout", "10s")

	// Routing defaults
	viper.SetDefault("routing.base_url", "https://api.openrouteservice.org/v2")
	viper.SetDefault("routing.timeout", "10s")
	viper.SetDefault("routing.max_concurrency", 8)

	// Gazetteer defaults
	viper.SetDefault("gazetteer.file_path", "data/sri_lanka_locations.json")
	viper.SetDefault("gazetteer.fuzzy_threshold", 80)

	// Ranker defaults
	viper.SetDefault("ranker.hidden_dim", 256)
	viper.SetDefault("ranker.neural_weight", 0.7)
	viper.SetDefault("ranker.similarity_weight", 0.3)

	// Clustering defaults
	viper.SetDefault("clustering.max_cluster_radius_km", 40.0)
	viper.SetDefault("clustering.min_per_cluster", 2)
	viper.SetDefault("clustering.max_per_cluster", 4)
	viper.SetDefault("clustering.distance_weight", 0.7)
	viper.SetDefault("clustering.default_algorithm", "smart")
	viper.SetDefault("clustering.max_daily_travel_hours", 3.0)
	viper.SetDefault("clustering.vector_search_candidates", 100)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("embedding.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// Qdrant connection
	bindEnvKeys("vector_index.url", []string{
		"QDRANT_HOST",
		"QDRANT_URL",
	})
	bindEnvKeys("vector_index.api_key", []string{
		"QDRANT_API_KEY",
	})
	bindEnvKeys("vector_index.collection", []string{
		"QDRANT_COLLECTION_NAME",
	})

	// OpenRouteService
	bindEnvKeys("routing.api_key", []string{
		"OPENROUTE_SERVICE_API_KEY",
		"ORS_API_KEY",
	})

	// Gazetteer
	bindEnvKeys("gazetteer.file_path", []string{
		"LOCATIONS_FILE_PATH",
	})

	// Ranker weights
	bindEnvKeys("ranker.weights_path", []string{
		"PEAR_RANKER_WEIGHTS_PATH",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"EXPLORESL_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig checks values that would otherwise fail deep inside the
// pipeline.
func validateConfig(config *Config) error {
	durations := map[string]string{
		"embedding.timeout":    config.Embedding.Timeout,
		"vector_index.timeout": config.VectorIndex.Timeout,
		"routing.timeout":      config.Routing.Timeout,
	}
	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	if config.Gazetteer.FuzzyThreshold < 0 || config.Gazetteer.FuzzyThreshold > 100 {
		return fmt.Errorf("gazetteer.fuzzy_threshold must be in [0,100], got %d", config.Gazetteer.FuzzyThreshold)
	}
	if w := config.Ranker.NeuralWeight + config.Ranker.SimilarityWeight; w <= 0 {
		return fmt.Errorf("ranker score weights must sum to a positive value, got %f", w)
	}
	if config.Clustering.MinPerCluster < 1 {
		return fmt.Errorf("clustering.min_per_cluster must be >= 1, got %d", config.Clustering.MinPerCluster)
	}
	if config.Clustering.MaxPerCluster < config.Clustering.MinPerCluster {
		return fmt.Errorf("clustering.max_per_cluster (%d) must be >= min_per_cluster (%d)",
			config.Clustering.MaxPerCluster, config.Clustering.MinPerCluster)
	}

	return nil
}

// Timeout parses a duration string with a fallback default.
func Timeout(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
