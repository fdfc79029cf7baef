package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"freshscan/internal/config"
	"freshscan/internal/logger"
	"freshscan/internal/repository/sqlite"
	"freshscan/internal/service"
	"freshscan/internal/service/ai"
	"freshscan/internal/service/inference"
	"freshscan/internal/service/pipeline"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
}

func main() {
	cfg := config.Load()

	imagesDir := flag.String("images", "images", "Directory containing images to classify")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	threshold := flag.Float64("threshold", cfg.DefaultThreshold, "Confidence threshold")
	maxPatches := flag.Int("max", cfg.DefaultMaxPatches, "Maximum predictions per image")
	sessionID := flag.String("session", "batch", "Session id recorded with each pass")
	flag.Parse()

	if *maxPatches > cfg.MaxPatchesLimit {
		log.Fatalf("-max %d exceeds MAX_PATCHES_LIMIT %d", *maxPatches, cfg.MaxPatchesLimit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.NewLogger(cfg)
	defer l.Close()

	fmt.Printf("Classifying images from %s into database %s\n", *imagesDir, *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	passRepo := sqlite.NewPassRepository(db)

	classifier, err := newClassifier(cfg, l)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}
	p := pipeline.New(classifier, nil, cfg.InputSize, l)

	files, err := os.ReadDir(*imagesDir)
	if err != nil {
		log.Fatalf("Failed to read images directory: %v", err)
	}

	processed, skipped := 0, 0
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		if file.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(file.Name()))] {
			continue
		}

		img, err := decodeFile(filepath.Join(*imagesDir, file.Name()))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		set, err := p.Run(ctx, img, *threshold, *maxPatches)
		if err != nil {
			log.Printf("⚠️  Pass failed for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		b := img.Bounds()
		pass, predictions := service.NewPassRecord(*sessionID, b.Dx(), b.Dy(), set)
		if _, err := passRepo.Insert(pass, predictions); err != nil {
			log.Fatalf("Failed to record pass: %v", err)
		}

		summary := pipeline.Summarize(set)
		fmt.Printf("%-32s fresh=%d rotten=%d above=%d/%d %v\n",
			file.Name(), summary.FreshCount, summary.RottenCount, set.AboveThreshold, set.Total, summary.Ingredients)
		processed++
	}

	fmt.Printf("✅ Classified %d images (%d skipped)\n", processed, skipped)
}

func newClassifier(cfg *config.Config, l *logger.Logger) (pipeline.Classifier, error) {
	if cfg.InferenceURL != "" {
		return inference.NewClient(cfg.InferenceURL, &http.Client{Timeout: 30 * time.Second})
	}

	labels, err := config.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	c := ai.NewClassifier(cfg, labels, l)
	if !c.Ready() {
		return nil, fmt.Errorf("classification network not available at %s", cfg.ClassifierModelPath)
	}
	return c, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
