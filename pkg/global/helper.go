package global

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(GetEnvOrDefault(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		log.Printf("Invalid boolean for %s, using %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(GetEnvOrDefault(key, strconv.Itoa(defaultValue)))
	if err != nil {
		log.Printf("Invalid integer for %s, using %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(GetEnvOrDefault(key, defaultValue.String()))
	if err != nil {
		log.Printf("Invalid duration for %s, using %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetDefaultTimer() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func MustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s is not set in environment variables", key)
	}
	return value
}
