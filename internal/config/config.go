// Package config loads the server's environment-variable configuration.
//
// Values ending in ".enc" are treated as a filename whose contents are
// RSA-OAEP decrypted with a private.pem found in the working directory.
// Decrypted values are cached in a shared, lazily-populated map built once
// at load time (Design Note 9.1: no reason for a per-thread cache).
package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server's tunables, all overridable via environment
// variables (see spec §6).
type Config struct {
	Port              int
	IOThreads         int
	PoolSize          int
	QueueCapacity     int
	MaxRequestSize    int
	CORSOrigins       []string
	JWTSecret         string
	JWTTimeoutSeconds int
	APIKey            string
	ReadTimeout       time.Duration
	PodName           string
	Version           string
}

var (
	decryptCacheMu sync.RWMutex
	decryptCache   = map[string]string{}
)

// Load reads the process environment into a Config, applying the spec's
// defaults and decrypting any ".enc"-suffixed value.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("IO_THREADS", runtime.NumCPU())
	v.SetDefault("POOL_SIZE", 16)
	v.SetDefault("QUEUE_CAPACITY", 1000)
	v.SetDefault("MAX_REQUEST_SIZE", 5*1024*1024)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TIMEOUT_SECONDS", 3600)
	v.SetDefault("API_KEY", "")
	v.SetDefault("POD_NAME", "")
	v.SetDefault("VERSION", "dev")

	jwtSecret, err := resolveSecret(v.GetString("JWT_SECRET"))
	if err != nil {
		return nil, fmt.Errorf("config: JWT_SECRET: %w", err)
	}
	if jwtSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	apiKey, err := resolveSecret(v.GetString("API_KEY"))
	if err != nil {
		return nil, fmt.Errorf("config: API_KEY: %w", err)
	}

	cors := v.GetString("CORS_ORIGINS")
	var origins []string
	if cors != "" {
		for _, o := range strings.Split(cors, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	ioThreads := v.GetInt("IO_THREADS")
	if ioThreads < 1 {
		ioThreads = 1
	}
	poolSize := v.GetInt("POOL_SIZE")
	if poolSize < ioThreads {
		poolSize = ioThreads
	}

	return &Config{
		Port:              v.GetInt("PORT"),
		IOThreads:         ioThreads,
		PoolSize:          poolSize,
		QueueCapacity:     v.GetInt("QUEUE_CAPACITY"),
		MaxRequestSize:    v.GetInt("MAX_REQUEST_SIZE"),
		CORSOrigins:       origins,
		JWTSecret:         jwtSecret,
		JWTTimeoutSeconds: v.GetInt("JWT_TIMEOUT_SECONDS"),
		APIKey:            apiKey,
		ReadTimeout:       30 * time.Second,
		PodName:           v.GetString("POD_NAME"),
		Version:           v.GetString("VERSION"),
	}, nil
}

// WorkersPerIOWorker splits the global pool size across I/O workers, floor 1.
func (c *Config) WorkersPerIOWorker() int {
	p := c.PoolSize / c.IOThreads
	if p < 1 {
		p = 1
	}
	return p
}

func resolveSecret(raw string) (string, error) {
	if raw == "" || !strings.HasSuffix(raw, ".enc") {
		return raw, nil
	}

	decryptCacheMu.RLock()
	if v, ok := decryptCache[raw]; ok {
		decryptCacheMu.RUnlock()
		return v, nil
	}
	decryptCacheMu.RUnlock()

	ciphertext, err := os.ReadFile(raw)
	if err != nil {
		return "", fmt.Errorf("reading encrypted value %q: %w", raw, err)
	}
	keyPEM, err := os.ReadFile("private.pem")
	if err != nil {
		return "", fmt.Errorf("reading private.pem: %w", err)
	}
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return "", fmt.Errorf("private.pem: invalid PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("private.pem: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting %q: %w", raw, err)
	}

	value := strings.TrimSpace(string(plaintext))
	decryptCacheMu.Lock()
	decryptCache[raw] = value
	decryptCacheMu.Unlock()
	return value, nil
}
