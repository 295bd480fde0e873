// Package main is a dependency-free liveness probe for distroless images,
// which have no curl or wget.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/garyellow/classroom-planner/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/livez", port))
	if err != nil {
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
