package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed matching.yaml
var matchingYAML []byte

type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Database  DatabaseConfig
	Matching  MatchingConfig
	UserData  UserDataConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	SessionSecret string // secret for signing session cookies
}

type ExtractorConfig struct {
	URL            string // embedding service base URL, defaults to http://localhost:8000
	TimeoutSeconds int    // per-request timeout (default 15)
	Dim            int    // embedding dimensionality (default 128)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// MatchingConfig mirrors faceauth.Policy plus the quality-gate switch.
// Defaults come from the embedded matching.yaml; env vars override.
type MatchingConfig struct {
	VerifyThreshold float64 `yaml:"verify_threshold"`
	UpdateThreshold float64 `yaml:"update_threshold"`
	DedupThreshold  float64 `yaml:"dedup_threshold"`
	MaxEmbeddings   int     `yaml:"max_embeddings"`
	StrictQuality   bool    `yaml:"-"`
}

type UserDataConfig struct {
	BaseDir string // root directory for per-user file storage
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, default on parse failure.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var matching MatchingConfig
	if err := yaml.Unmarshal(matchingYAML, &matching); err != nil {
		// Embedded file; failing to parse it is a build defect.
		panic("failed to unmarshal embedded matching.yaml: " + err.Error())
	}

	matching.VerifyThreshold = envFloat("FACELOCK_VERIFY_THRESHOLD", matching.VerifyThreshold)
	matching.UpdateThreshold = envFloat("FACELOCK_UPDATE_THRESHOLD", matching.UpdateThreshold)
	matching.DedupThreshold = envFloat("FACELOCK_DEDUP_THRESHOLD", matching.DedupThreshold)
	matching.MaxEmbeddings = envInt("FACELOCK_MAX_EMBEDDINGS", matching.MaxEmbeddings)
	matching.StrictQuality = envBool("FACELOCK_STRICT_QUALITY", true)

	return &Config{
		Server: ServerConfig{
			Host:          envString("FACELOCK_HOST", "0.0.0.0"),
			Port:          envInt("FACELOCK_PORT", 8080),
			SessionSecret: os.Getenv("FACELOCK_SESSION_SECRET"),
		},
		Extractor: ExtractorConfig{
			URL:            os.Getenv("EXTRACTOR_URL"),
			TimeoutSeconds: envInt("EXTRACTOR_TIMEOUT_SECONDS", 15),
			Dim:            envInt("EXTRACTOR_DIM", 128),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matching: matching,
		UserData: UserDataConfig{
			BaseDir: envString("FACELOCK_USER_DATA_DIR", "user_data"),
		},
	}
}
