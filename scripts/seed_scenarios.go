// seed_scenarios.go: standalone script that posts economy scenarios from a
// YAML file to the Edgeworth API.
//
// Usage:
//
//	go run scripts/seed_scenarios.go -file scripts/scenarios/problem_sets.yaml -api http://localhost:8700 -client seed
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type params struct {
	W1A   *float64 `yaml:"w1A" json:"w1A,omitempty"`
	W2A   *float64 `yaml:"w2A" json:"w2A,omitempty"`
	Alpha *float64 `yaml:"alpha" json:"alpha,omitempty"`
	Beta  *float64 `yaml:"beta" json:"beta,omitempty"`
}

type scenario struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Params      *params `yaml:"params" json:"params,omitempty"`
}

type seedFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func main() {
	path := flag.String("file", "scripts/scenarios/problem_sets.yaml", "path to scenarios YAML file")
	apiURL := flag.String("api", "http://localhost:8700", "Edgeworth API base URL")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	dryRun := flag.Bool("dry-run", false, "print scenarios without posting")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("parse %s: %v", *path, err)
	}

	if *dryRun {
		for i, sc := range seed.Scenarios {
			p, _ := json.Marshal(sc.Params)
			fmt.Printf("[%d] %s %s\n", i+1, sc.Name, p)
		}
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	created, skipped := 0, 0
	for _, sc := range seed.Scenarios {
		body, _ := json.Marshal(sc)
		req, err := http.NewRequest("POST", *apiURL+"/api/v1/scenarios", bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %q: %v", sc.Name, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Client-ID", *clientID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %q: %v", sc.Name, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			created++
		} else {
			log.Printf("skip %q: status %d", sc.Name, resp.StatusCode)
			skipped++
		}
	}

	log.Printf("done: %d created, %d skipped", created, skipped)
}
