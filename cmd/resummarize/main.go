package main

// Rebuild stored summaries after reducer changes:
//   go run ./cmd/resummarize -dry
//   go run ./cmd/resummarize -owner o-123 -only identity,income

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"tenant-validation/internal/bootstrap"
	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/shared/config"
	"tenant-validation/internal/validation"
)

func main() {
	owner := flag.String("owner", "", "owner id (default: every owner with records)")
	only := flag.String("only", "", "comma-separated categories")
	dry := flag.Bool("dry", false, "report changes without writing")
	flag.Parse()

	categories, err := validation.ParseCategories(*only)
	if err != nil {
		log.Fatalf("-only: %v", err)
	}

	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	report, err := app.Validations.Resummarize(context.Background(), auth.System, validation.ResummarizeOptions{
		OwnerID: *owner,
		Only:    categories,
		DryRun:  *dry,
	})
	if err != nil {
		log.Fatalf("resummarize: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("write report: %v", err)
	}
	if len(report.Errors) > 0 {
		os.Exit(2)
	}
}
