package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/transcript-agent/internal/cache"
	"github.com/codebuildervaibhav/transcript-agent/internal/cleanup"
	"github.com/codebuildervaibhav/transcript-agent/internal/download"
	"github.com/codebuildervaibhav/transcript-agent/internal/handlers"
	"github.com/codebuildervaibhav/transcript-agent/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-agent/internal/recognition"
	"github.com/codebuildervaibhav/transcript-agent/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Whisper struct {
		Python string `yaml:"python"`
	} `yaml:"whisper"`

	Pipeline struct {
		MaxAttempts      int `yaml:"max_attempts"`
		RetryBaseSeconds int `yaml:"retry_base_seconds"`
		MaxConcurrent    int `yaml:"max_concurrent"`
	} `yaml:"pipeline"`

	Download struct {
		TimeoutMinutes int `yaml:"timeout_minutes"`
	} `yaml:"download"`

	Cache struct {
		Transcripts int `yaml:"transcripts"`
		Models      int `yaml:"models"`
	} `yaml:"cache"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

func main() {
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureTempDirExists(config.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(config.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Collaborators
	downloader := download.NewYtDlp(config.Storage.TempDir,
		time.Duration(config.Download.TimeoutMinutes)*time.Minute)
	loader := recognition.NewWhisperLoader(config.Whisper.Python)
	recognizer := recognition.NewWhisperRecognizer(config.Whisper.Python, config.Storage.TempDir)

	// Caches
	storeCache := cache.NewStoreCache(config.Cache.Transcripts)
	modelCache := cache.NewModelCache(loader, config.Cache.Models)

	// Orchestrator
	orchestrator := pipeline.New(pipeline.Config{
		MaxAttempts:   config.Pipeline.MaxAttempts,
		RetryBase:     time.Duration(config.Pipeline.RetryBaseSeconds) * time.Second,
		MaxConcurrent: config.Pipeline.MaxConcurrent,
		TempDir:       config.Storage.TempDir,
	}, downloader, recognizer, storeCache, modelCache, nil)

	// Export storage
	exportStore := storage.NewExportStore(config.Storage.OutputDir)

	// Google Drive client (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Exports will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Catalog database
	catalog, err := storage.NewCatalog(config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer catalog.Close()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		config.Storage.TempDir,
		time.Duration(config.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(config.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	jobsHandler := handlers.NewJobsHandler(orchestrator)
	searchHandler := handlers.NewSearchHandler(orchestrator)
	summaryHandler := handlers.NewSummaryHandler(orchestrator)
	exportHandler := handlers.NewExportHandler(orchestrator, exportStore, driveClient, catalog)
	progressHandler := handlers.NewProgressStreamHandler(orchestrator)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/jobs", jobsHandler.HandleSubmit)
	app.Get("/jobs/:id", jobsHandler.HandleProgress)
	app.Delete("/jobs/:id", jobsHandler.HandleCancel)
	app.Get("/jobs/:id/search", searchHandler.Handle)
	app.Get("/jobs/:id/summary", summaryHandler.Handle)
	app.Get("/jobs/:id/export", exportHandler.Handle)

	// WebSocket route
	app.Get("/ws/jobs/:id", websocket.New(progressHandler.Handle))

	// Exported transcript catalog
	app.Get("/transcripts", func(c *fiber.Ctx) error {
		entries, err := catalog.List(50)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if entries == nil {
			entries = []storage.CatalogEntry{}
		}
		return c.JSON(entries)
	})

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST   /jobs             - Submit a source URL for transcription")
	log.Println("   GET    /jobs/:id         - Poll job progress")
	log.Println("   DELETE /jobs/:id         - Cancel a job")
	log.Println("   GET    /jobs/:id/search  - Search the transcript")
	log.Println("   GET    /jobs/:id/summary - Summarize the transcript")
	log.Println("   GET    /jobs/:id/export  - Export [HH:MM:SS] text")
	log.Println("   GET    /ws/jobs/:id      - Live progress stream")
	log.Println("   GET    /transcripts      - List exported transcripts")
	log.Println("   GET    /logs             - View server logs")
	log.Println("   GET    /health           - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}