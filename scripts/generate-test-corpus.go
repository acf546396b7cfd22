//go:build ignore

// Package main generates a synthetic document corpus for benchmarking search.
// Usage: go run scripts/generate-test-corpus.go -docs 5000 -output testdata/bench/corpus.yaml
//
// The output is a YAML list accepted by `docsearch import`.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	numDocs = flag.Int("docs", 1000, "Number of documents to generate")
	output  = flag.String("output", "testdata/bench/corpus.yaml", "Output file ('-' for stdout)")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
	maxAge  = flag.Int("max-age-days", 365, "Spread creation dates over this many days")
)

// document mirrors the import file format.
type document struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Content   string    `yaml:"content"`
	Author    string    `yaml:"author,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

var (
	topics = []string{
		"Python", "Go", "Rust", "Kubernetes", "PostgreSQL",
		"Redis", "Kafka", "React", "Terraform", "Linux",
		"Sourdough", "Banana Bread", "Espresso", "Gardening", "Photography",
	}
	kinds = []string{
		"Tutorial", "Guide", "Cheat Sheet", "Deep Dive", "Recipe",
		"Handbook", "Primer", "Field Notes", "FAQ", "Patterns",
	}
	adjectives = []string{
		"Advanced", "Practical", "Beginner", "Modern", "Complete",
		"Quick", "Essential", "Hands-on", "Illustrated", "Pocket",
	}
	phrases = []string{
		"step by step", "common pitfalls", "performance tuning", "best results",
		"real world examples", "troubleshooting", "getting started", "under the hood",
		"in production", "from scratch", "with worked examples", "for teams",
	}
	authors = []string{"ada", "grace", "linus", "ken", "barbara", "edsger", ""}
)

func main() {
	flag.Parse()
	if *maxAge < 1 {
		*maxAge = 1
	}
	rng := rand.New(rand.NewSource(*seed))
	now := time.Now().UTC().Truncate(time.Second)

	docs := make([]document, 0, *numDocs)
	for i := 0; i < *numDocs; i++ {
		docs = append(docs, generate(rng, i, now))
	}

	data, err := yaml.Marshal(docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding corpus: %v\n", err)
		os.Exit(1)
	}

	if *output == "-" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing corpus: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d documents in %s\n", len(docs), *output)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func generate(rng *rand.Rand, i int, now time.Time) document {
	topic := pick(rng, topics)
	title := fmt.Sprintf("%s %s %s", pick(rng, adjectives), topic, pick(rng, kinds))

	// A few paragraphs that mention the topic, plus an unrelated topic so
	// body matches do not always agree with title matches.
	var b strings.Builder
	paragraphs := 2 + rng.Intn(4)
	for p := 0; p < paragraphs; p++ {
		subject := topic
		if p%2 == 1 {
			subject = pick(rng, topics)
		}
		fmt.Fprintf(&b, "%s %s: notes on %s and %s. ", subject, pick(rng, phrases),
			strings.ToLower(pick(rng, kinds)), pick(rng, phrases))
	}

	age := time.Duration(rng.Intn(*maxAge*24)) * time.Hour
	return document{
		ID:        fmt.Sprintf("doc-%05d", i),
		Title:     title,
		Content:   strings.TrimSpace(b.String()),
		Author:    pick(rng, authors),
		CreatedAt: now.Add(-age),
	}
}
