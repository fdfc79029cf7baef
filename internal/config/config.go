package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 int
	Environment          string
	FrontendURL          string
	AdminToken           string
	ClassifierModelPath  string
	ClassifierConfigPath string // Puste dla modeli ONNX
	DetectorModelPath    string
	DetectorConfigPath   string
	LabelsPath           string
	InferenceURL         string // Zdalny klasyfikator zamiast lokalnej sieci, jeśli ustawiony
	InputSize            int    // Bok kwadratowego wejścia klasyfikatora w pikselach
	DefaultThreshold     float64
	DefaultMaxPatches    int
	MaxPatchesLimit      int   // Górny limit max_patches na jedno przejście
	MaxUploadSize        int64 // W MB
	PatchDirectory       string
	DatabasePath         string
	LogDirectory         string
	RecipeAPIKey         string
	RecipeBaseURL        string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnvAsInt("PORT", 8000),
		Environment:          getEnv("ENVIRONMENT", "development"),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminToken:           getEnv("ADMIN_TOKEN", ""),
		ClassifierModelPath:  getEnv("CLASSIFIER_MODEL_PATH", filepath.Join(".", "models", "veg_fruit_classifier_128.onnx")),
		ClassifierConfigPath: getEnv("CLASSIFIER_CONFIG_PATH", ""),
		DetectorModelPath:    getEnv("DETECTOR_MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		DetectorConfigPath:   getEnv("DETECTOR_CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v2_coco.pbtxt")),
		LabelsPath:           getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.yaml")),
		InferenceURL:         getEnv("INFERENCE_URL", ""),
		InputSize:            getEnvAsInt("INPUT_SIZE", 128),
		DefaultThreshold:     getEnvAsFloat("DEFAULT_THRESHOLD", 0.5),
		DefaultMaxPatches:    getEnvAsInt("DEFAULT_MAX_PATCHES", 4),
		MaxPatchesLimit:      getEnvAsInt("MAX_PATCHES_LIMIT", 64),
		MaxUploadSize:        getEnvAsInt64("MAX_UPLOAD_MB", 20),
		PatchDirectory:       getEnv("PATCH_DIR", filepath.Join(".", "patches")),
		DatabasePath:         getEnv("DB_PATH", filepath.Join(".", "data", "freshscan.db")),
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
		RecipeAPIKey:         getEnv("RECIPE_API_KEY", getEnv("API_KEY", "")),
		RecipeBaseURL:        getEnv("RECIPE_BASE_URL", "https://api.spoonacular.com/recipes/findByIngredients"),
	}
}

// AllowedOrigins returns the CORS origins for the current environment.
func (c *Config) AllowedOrigins() []string {
	if c.Environment == "production" {
		return []string{c.FrontendURL}
	}
	return []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		c.FrontendURL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
