package config

import (
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/subosito/gotenv"
)

// Load reads the dotenv file at path (if it exists) into the process
// environment. Missing files are not an error so containerized deployments
// can rely on real environment variables.
func Load(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return gotenv.Load(path)
}

func GetKey(key string) string {
	return os.Getenv(key)
}

func MustGetKey(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("No such required config key: '%s'", key)
	}
	return val
}

func GetKeyWithDefault(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func GetIntKeyWithDefault(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}
