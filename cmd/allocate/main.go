package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/arnavshah/internship-allocator-go/pkg/config"
	"github.com/arnavshah/internship-allocator-go/pkg/engine"
	"github.com/arnavshah/internship-allocator-go/pkg/explain"
	"github.com/arnavshah/internship-allocator-go/pkg/logger"
	"github.com/arnavshah/internship-allocator-go/pkg/tabular"
)

func main() {
	candidatesPath := flag.String("candidates", "", "Path to candidates CSV file")
	internshipsPath := flag.String("internships", "", "Path to internships CSV file")
	configPath := flag.String("config", "", "Optional path to a YAML config file")
	jsonPath := flag.String("json", "", "Optional path to write JSON output")
	csvPath := flag.String("csv", "", "Optional path to write the results table as CSV")
	topN := flag.Int("top", 10, "Number of allocations to display")
	strict := flag.Bool("strict", false, "Fail when any input row is invalid")
	flag.Parse()

	if *candidatesPath == "" || *internshipsPath == "" {
		exitWith("candidates and internships are required")
	}
	if *topN < 0 {
		exitWith("top must be >= 0")
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		exitWith(err.Error())
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")
	eng, err := engine.New(cfg.Engine, log)
	if err != nil {
		exitWith(err.Error())
	}

	candidates, err := readRows(*candidatesPath)
	if err != nil {
		exitWith(err.Error())
	}
	internships, err := readRows(*internshipsPath)
	if err != nil {
		exitWith(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := eng.Allocate(ctx, candidates, internships)
	if err != nil {
		exitWith(err.Error())
	}

	if len(outcome.ValidationErrors) > 0 {
		fmt.Println("Rejected rows:")
		for _, ve := range outcome.ValidationErrors {
			fmt.Printf("- %s\n", ve.Error())
		}
		fmt.Println()
		if *strict {
			exitWith(fmt.Sprintf("%d invalid input fields", len(outcome.ValidationErrors)))
		}
	}

	printSummary(outcome.Statistics)
	printAllocations(outcome, *topN)

	if *jsonPath != "" {
		if err := writeJSON(*jsonPath, outcome); err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("\nJSON written to %s\n", *jsonPath)
	}
	if *csvPath != "" {
		if err := writeCSV(*csvPath, outcome); err != nil {
			exitWith(err.Error())
		}
		fmt.Printf("CSV written to %s\n", *csvPath)
	}
}

func exitWith(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	os.Exit(1)
}

func readRows(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open CSV: %w", err)
	}
	defer file.Close()

	rows, err := tabular.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func printSummary(stats explain.Statistics) {
	fmt.Println("Internship Allocation Summary")
	fmt.Println(strings.Repeat("-", 29))
	fmt.Printf("Candidates:    %d\n", stats.TotalCandidates)
	fmt.Printf("Internships:   %d (%d seats)\n", stats.TotalInternships, stats.TotalCapacity)
	fmt.Printf("Allocated:     %d\n", stats.Allocated)
	fmt.Printf("Unallocated:   %d\n", stats.Unallocated)
	fmt.Printf("Average Score: %.2f (base %.2f)\n", stats.AverageScore, stats.AverageBaseScore)
	fmt.Printf("High Scores:   %d (>= %d)\n", stats.HighScores, explain.HighScoreThreshold)
	fmt.Printf("Utilization:   %.1f%%\n", stats.OverallUtilization*100)
	fmt.Printf("Parity Index:  %.2f\n", stats.PlacementParity)

	fmt.Println("\nBy Category")
	fmt.Println(strings.Repeat("-", 11))
	for _, cmp := range stats.BoostComparison {
		fmt.Printf("%s: %d/%d placed (%.1f%%), base %.2f -> final %.2f\n",
			cmp.Category, cmp.Allocated, cmp.Candidates, cmp.PlacementRate*100, cmp.AverageBase, cmp.AverageFinal)
	}

	fmt.Println("\nBy Area")
	fmt.Println(strings.Repeat("-", 7))
	printCounts(stats.ByArea)
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %d\n", k, counts[k])
	}
}

func printAllocations(outcome *engine.Outcome, topN int) {
	if len(outcome.Records) == 0 {
		fmt.Println("\nNo allocations.")
		return
	}
	fmt.Println("\nTop Allocations")
	fmt.Println(strings.Repeat("-", 15))
	for i, rec := range outcome.Records {
		if i >= topN {
			fmt.Printf("... %d more\n", len(outcome.Records)-topN)
			break
		}
		fmt.Printf("%d. %s -> %s (%.2f) %s\n", i+1, rec.Candidate, rec.Internship, rec.Score, rec.Reason)
	}
	if len(outcome.Result.Unallocated) > 0 {
		fmt.Printf("\nUnallocated: %s\n", strings.Join(outcome.Result.Unallocated, ", "))
	}
}

func writeJSON(path string, outcome *engine.Outcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("unable to write JSON: %w", err)
	}
	return nil
}

func writeCSV(path string, outcome *engine.Outcome) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create CSV: %w", err)
	}
	defer file.Close()
	if err := tabular.WriteRecords(file, outcome.Records); err != nil {
		return fmt.Errorf("unable to write CSV: %w", err)
	}
	return nil
}
