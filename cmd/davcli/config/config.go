package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Endpoint  string `json:"endpoint"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	AuthKind  string `json:"auth_kind"`
	Backend   string `json:"backend"`
	RateLimit int    `json:"rate_limit"`
	Thread    int    `json:"thread"`
	LogLevel  string `json:"log_level"`
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := &Config{
		AuthKind: "basic",
		Backend:  "nethttp",
		Thread:   4,
		LogLevel: "info",
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unmarshal file:%w", err)
	}
	return c, nil
}
