package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// sqliteRecord is the gorm row for single-node deployments.
type sqliteRecord struct {
	OwnerID   string `gorm:"primaryKey;size:191"`
	Category  string `gorm:"primaryKey;size:64"`
	Verdict   int    `gorm:"not null"`
	Payload   []byte `gorm:"not null"`
	Summary   string `gorm:"type:text"`
	UpdatedAt time.Time
	UpdatedBy string `gorm:"size:191"`
}

func (sqliteRecord) TableName() string { return "validation_records" }

// SQLiteRepo implements Repo on an embedded SQLite file.
type SQLiteRepo struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&sqliteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepo) Upsert(ctx context.Context, rec Record) error {
	row := sqliteRecord{
		OwnerID:   rec.OwnerID,
		Category:  string(rec.Category),
		Verdict:   int(rec.Verdict),
		Payload:   rec.Payload,
		Summary:   rec.Summary,
		UpdatedAt: rec.UpdatedAt,
		UpdatedBy: rec.UpdatedBy,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"verdict", "payload", "summary", "updated_at", "updated_by"}),
	}).Create(&row).Error
}

func (r *SQLiteRepo) Get(ctx context.Context, ownerID string, category Category) (Record, error) {
	var row sqliteRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND category = ?", ownerID, string(category)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return row.toRecord(), nil
}

func (r *SQLiteRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	var rows []sqliteRecord
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("category").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (r *SQLiteRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&sqliteRecord{}).Distinct("owner_id").Order("owner_id").Pluck("owner_id", &ids).Error
	return ids, err
}

func (row sqliteRecord) toRecord() Record {
	return Record{
		OwnerID:   row.OwnerID,
		Category:  Category(row.Category),
		Verdict:   Verdict(row.Verdict),
		Payload:   row.Payload,
		Summary:   row.Summary,
		UpdatedAt: row.UpdatedAt,
		UpdatedBy: row.UpdatedBy,
	}
}
