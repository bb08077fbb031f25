package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/dgellow/movie-gateway/internal"
	"github.com/dgellow/movie-gateway/internal/config"
	"github.com/dgellow/movie-gateway/internal/log"
	"github.com/joho/godotenv"
)

var BuildVersion = "dev"

func envRef(name string) map[string]string {
	return map[string]string{"$env": name}
}

func provider(kind, idVar, secretVar, callbackPath string) map[string]any {
	return map[string]any{
		"kind":         kind,
		"clientId":     envRef(idVar),
		"clientSecret": envRef(secretVar),
		"callbackPath": callbackPath,
	}
}

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": config.Version,
		"gateway": map[string]any{
			"addr":           ":8000",
			"baseURL":        "http://localhost:8000",
			"allowedOrigins": []string{"http://localhost:3000"},
			"sessionSecret":  envRef("SESSION_SECRET"),
			"logLevel":       "info",
			"logFormat":      "text",
		},
		"upstream": map[string]any{
			"url":         "http://localhost:3000",
			"apiKeyToken": envRef("API_KEY_TOKEN"),
		},
		"providers": map[string]any{
			"google":       provider("google-oidc", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "/auth/google/callback"),
			"google-oauth": provider("google-oauth", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "/auth/google-oauth/callback"),
			"twitter":      provider("twitter", "TWITTER_CLIENT_ID", "TWITTER_CLIENT_SECRET", "/auth/twitter/callback"),
			"linkedin":     provider("linkedin", "LINKEDIN_CLIENT_ID", "LINKEDIN_CLIENT_SECRET", "/auth/linkedin/callback"),
			"facebook":     provider("facebook", "FACEBOOK_CLIENT_ID", "FACEBOOK_CLIENT_SECRET", "/auth/facebook/callback"),
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			if err.Path != "" {
				fmt.Printf("  - %s: %s\n", err.Path, err.Message)
			} else {
				fmt.Printf("  - %s\n", err.Message)
			}
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			if warn.Path != "" {
				fmt.Printf("  - %s: %s\n", warn.Path, warn.Message)
			} else {
				fmt.Printf("  - %s\n", warn.Message)
			}
		}
	}

	fmt.Println()
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Println("Result: PASS")
	case len(result.Errors) == 0:
		fmt.Println("Result: FAIL (warnings present)")
	default:
		fmt.Println("Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

// loadDotEnv loads envFile into the environment. Variables already set win.
func loadDotEnv(envFile string) error {
	err := godotenv.Load(envFile)
	if err == nil {
		log.LogDebugWithFields("main", "Loaded environment file", map[string]any{
			"path": envFile,
		})
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	envFile := flag.String("env-file", ".env", "environment file loaded before the config is read")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if err := loadDotEnv(*envFile); err != nil {
		log.LogError("Failed to load environment file: %v", err)
		os.Exit(1)
	}

	if *validate {
		if *conf == "" {
			fmt.Fprintf(os.Stderr, "Error: -config flag is required for validation\n")
			os.Exit(1)
		}
		if err := validateConfig(*conf); err != nil {
			os.Exit(1)
		}
		return
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting movie-gateway", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
	})

	gateway, err := internal.NewGateway(cfg)
	if err != nil {
		log.LogError("Failed to create gateway: %v", err)
		os.Exit(1)
	}

	if err := gateway.Run(context.Background()); err != nil {
		log.LogError("Gateway failed: %v", err)
		os.Exit(1)
	}
}
