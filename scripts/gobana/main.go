package main

import (
	"PerfSpectra/internal/model"
	"PerfSpectra/internal/snapshot"
	"fmt"
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <snapshot-dir>...")
		os.Exit(1)
	}

	for _, dir := range os.Args[1:] {
		manifest, summary, err := snapshot.ReadSnapshot(dir)
		if err != nil {
			log.Fatalf("Unable to read snapshot %s: %v", dir, err)
		}
		fmt.Printf("%s  backend: %s  ingested: %d  failed: %d\n", manifest.Timestamp, manifest.Backend, manifest.Ingested, manifest.Failed)
		printSummary(summary)
	}
}

func printSummary(summary *model.SummaryResult) {
	if len(summary.Groups) == 0 {
		fmt.Println("(no groups)")
		return
	}
	fmt.Println(snapshot.FormatTable(summary))
}
