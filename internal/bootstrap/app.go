package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/documents"
	"tenant-validation/internal/face"
	"tenant-validation/internal/face/rekognition"
	"tenant-validation/internal/health"
	"tenant-validation/internal/ocr"
	ocrlocal "tenant-validation/internal/ocr/local"
	"tenant-validation/internal/ocr/textract"
	"tenant-validation/internal/owners"
	"tenant-validation/internal/queue"
	"tenant-validation/internal/relay"
	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/shared/config"
	"tenant-validation/internal/shared/server"
	"tenant-validation/internal/shared/storage/db"
	"tenant-validation/internal/shared/storage/object"
	localstore "tenant-validation/internal/shared/storage/object/local"
	miniostore "tenant-validation/internal/shared/storage/object/minio"
	s3store "tenant-validation/internal/shared/storage/object/s3"
	"tenant-validation/internal/shared/telemetry"
	"tenant-validation/internal/validation"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	SQLite *validation.SQLiteRepo

	Store  object.Store
	Mirror object.Mirror
	Queue  queue.Client

	Owners         owners.Directory
	DocumentsRepo  documents.Repo
	ValidationRepo validation.Repo

	DocumentsService *documents.Service
	Validations      *validation.Service
	Extractor        *ocr.Orchestrator

	DocumentsHandler  *documents.Handler
	OwnersHandler     *owners.Handler
	ValidationHandler *validation.Handler
}

// Build wires every dependency and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	telemetry.SetLevel(cfg.LogLevel)

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, mirror, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Mirror: mirror,
		Queue:  queueClient,
	}
	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.AdminJWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		Verifier:          signer,
		Health:            health.NewService(app.pinger()),
		DocumentsHandler:  app.DocumentsHandler,
		OwnersHandler:     app.OwnersHandler,
		ValidationHandler: app.ValidationHandler,
	})
	return app, nil
}

// Close releases database handles.
func (a *App) Close() {
	if a.SQLite != nil {
		_ = a.SQLite.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildStore returns the origin store and the mirror that places blobs in
// the bucket the OCR service reads.
func buildStore(ctx context.Context, cfg config.Config) (object.Store, object.Mirror, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		client, err := s3store.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		store, err := s3store.New(client, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, nil, err
		}
		ocrBucket := firstNonEmpty(cfg.OCRBucket, cfg.S3Bucket)
		targetClient := client
		if cfg.OCRRegion != "" && cfg.OCRRegion != cfg.AWSRegion {
			if targetClient, err = s3store.NewClient(ctx, cfg.OCRRegion); err != nil {
				return nil, nil, err
			}
		}
		mirror, err := s3store.NewMirror(targetClient, cfg.S3Bucket, cfg.S3Prefix, ocrBucket, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, nil, err
		}
		return store, mirror, nil
	case "minio":
		if strings.TrimSpace(cfg.MinioEndpoint) == "" || strings.TrimSpace(cfg.MinioBucket) == "" {
			return nil, nil, fmt.Errorf("OBJECT_STORE=minio requires MINIO_ENDPOINT and MINIO_BUCKET")
		}
		client, err := miniostore.NewClient(miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.AWSRegion,
		})
		if err != nil {
			return nil, nil, err
		}
		ocrBucket := firstNonEmpty(cfg.MinioOCRBucket, cfg.MinioBucket)
		for _, bucket := range []string{cfg.MinioBucket, ocrBucket} {
			if err := miniostore.EnsureBucket(ctx, client, bucket); err != nil {
				return nil, nil, err
			}
		}
		store, err := miniostore.New(client, cfg.MinioBucket)
		if err != nil {
			return nil, nil, err
		}
		return store, miniostore.NewMirror(client, cfg.MinioBucket, ocrBucket), nil
	default:
		dir := cfg.LocalStoreDir
		return localstore.New(dir), localstore.NewMirror(dir, filepath.Join(dir, "ocr")), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.ValidationQueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.ValidationQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildOCR(ctx context.Context, cfg config.Config, mirror object.Mirror) (ocr.Client, error) {
	if cfg.OCRProvider == "textract" {
		return textract.New(ctx, cfg.OCRRegion)
	}
	return ocrlocal.New(mirror), nil
}

func buildFaces(ctx context.Context, cfg config.Config, store object.Store) (validation.FaceComparer, error) {
	switch cfg.FaceProvider {
	case "rekognition", "aws":
		comparer, err := rekognition.New(ctx, cfg.FaceRegion)
		if err != nil {
			return nil, err
		}
		return face.NewEvaluator(store, comparer), nil
	case "", "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown FACE_PROVIDER %q", cfg.FaceProvider)
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	aliases, err := documents.LoadAliasFile(cfg.DocumentAliasesFile)
	if err != nil {
		return fmt.Errorf("document aliases: %w", err)
	}
	classifier, err := documents.NewClassifier(aliases)
	if err != nil {
		return fmt.Errorf("document aliases: %w", err)
	}

	switch {
	case app.DB != nil:
		app.Owners = &owners.PGDirectory{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.ValidationRepo = &validation.PGRepo{DB: app.DB}
	default:
		app.Owners = owners.NewMemoryDirectory()
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.ValidationRepo = validation.NewMemoryRepo()
	}
	if app.DB == nil && strings.TrimSpace(cfg.SQLitePath) != "" {
		repo, err := validation.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		app.SQLite = repo
		app.ValidationRepo = repo
	}

	ocrClient, err := buildOCR(ctx, cfg, app.Mirror)
	if err != nil {
		return fmt.Errorf("ocr client: %w", err)
	}
	app.Extractor = ocr.NewOrchestrator(ocrClient, app.Store, relay.New(app.Mirror), ocr.Options{
		PollInterval: cfg.OCRPollInterval,
		JobTimeout:   cfg.OCRJobTimeout,
		Concurrency:  cfg.OCRConcurrency,
	})

	faces, err := buildFaces(ctx, cfg, app.Store)
	if err != nil {
		return fmt.Errorf("face comparer: %w", err)
	}

	app.DocumentsService = &documents.Service{
		Store:      app.Store,
		Repo:       app.DocumentsRepo,
		Classifier: classifier,
	}
	app.Validations = &validation.Service{
		Repo:          app.ValidationRepo,
		Documents:     app.DocumentsService,
		Owners:        app.Owners,
		Extractor:     app.Extractor,
		Faces:         faces,
		FaceThreshold: cfg.FaceThreshold,
		Queue:         app.Queue,
	}

	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.OwnersHandler = owners.NewHandler(app.Owners)
	app.ValidationHandler = validation.NewHandler(app.Validations)
	if app.DocumentsHandler == nil || app.ValidationHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// pinger avoids handing health a typed-nil *sql.DB.
func (a *App) pinger() health.Pinger {
	if a.DB == nil {
		return nil
	}
	return a.DB
}
