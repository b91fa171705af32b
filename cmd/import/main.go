package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ikkim/review-insight-backend/config"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/db"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/ikkim/review-insight-backend/pkg/util"
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/import/main.go <xlsx_file_path> [-y]")
	}

	filePath := os.Args[1]
	assumeYes := len(os.Args) > 2 && os.Args[2] == "-y"

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	drafts, err := service.ReadReviewsXLSX(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total reviews to import: %d\n", len(drafts))
	if len(drafts) == 0 {
		return
	}

	// 사용자 확인
	if !assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	reviewRepo := repository.NewReviewRepository(db.GetDB())
	// the import process never reads the snapshot; the server's own cache
	// expires on its TTL
	snapshots := cache.NewSnapshotCache(time.Minute, reviewRepo.FindAll, nil)
	reviewService := service.NewReviewService(reviewRepo, snapshots, util.NewReviewDateParser(cfg.Ingest.DefaultReviewYear), nil)

	result, err := reviewService.SaveReviews(context.Background(), drafts)
	if err != nil {
		log.Fatal("Failed to import reviews:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Saved: %d, skipped as duplicates: %d, dates defaulted to today: %d\n",
		result.Saved, result.Skipped, result.DateFallbacks)
}
