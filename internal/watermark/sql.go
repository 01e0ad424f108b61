package watermark

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tez-capital/tezsign-core/internal/encoding"
)

// watermarkRow is the GORM model backing SQLBackend. It mirrors the
// persisted schema in spec.md §4.4/§6, keyed by (pkh, class) the same
// way the file backend keys by directory+filename.
type watermarkRow struct {
	PKH       string `gorm:"primaryKey;size:48;column:pkh"`
	Class     string `gorm:"primaryKey;size:16;column:class"`
	Level     uint32 `gorm:"column:level"`
	Round     uint32 `gorm:"column:round"`
	BlockHash string `gorm:"column:block_hash"`
	Signature string `gorm:"column:signature"`
	UpdatedAt time.Time
}

func (watermarkRow) TableName() string { return "signer_watermarks" }

// SQLBackend is an alternate Backend for operators who want the
// watermark database outside the device filesystem (SPEC_FULL.md's
// domain stack). It offers the same crash-atomicity contract as
// FileBackend: each Save runs inside a single transaction, so a crash
// mid-write leaves either the old row or the new row, never a partial
// one.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend opens (and migrates) a MySQL-backed watermark store
// from a standard DSN.
func NewSQLBackend(dsn string) (*SQLBackend, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("watermark: open sql backend: %w", err)
	}
	if err := db.AutoMigrate(&watermarkRow{}); err != nil {
		return nil, fmt.Errorf("watermark: migrate sql backend: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Load() (map[key]Record, error) {
	var rows []watermarkRow
	if err := b.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := map[key]Record{}
	for _, row := range rows {
		payload, err := encoding.Decode(encoding.PrefixPKH, row.PKH)
		if err != nil {
			continue
		}
		var pkh [20]byte
		copy(pkh[:], payload)

		class, ok := classFromString(row.Class)
		if !ok {
			continue
		}

		rec := Record{Level: row.Level, Round: row.Round}
		if class == ClassBlock {
			rec.BlockHash = decodeHex(row.BlockHash)
			rec.Signature = decodeSigB58(row.Signature)
		}
		out[key{pkh: pkh, class: class}] = rec
	}
	return out, nil
}

func (b *SQLBackend) Save(pkh [20]byte, class Class, rec Record) error {
	tz4, err := encoding.Encode(encoding.PrefixPKH, pkh[:])
	if err != nil {
		return err
	}

	row := watermarkRow{
		PKH:   tz4,
		Class: class.String(),
		Level: rec.Level,
		Round: rec.Round,
	}
	if class == ClassBlock {
		row.BlockHash = encodeHex(rec.BlockHash)
		row.Signature = encodeSigB58(rec.Signature)
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		return tx.Save(&row).Error
	})
}

func classFromString(s string) (Class, bool) {
	switch s {
	case ClassBlock.String():
		return ClassBlock, true
	case ClassPreattestation.String():
		return ClassPreattestation, true
	case ClassAttestation.String():
		return ClassAttestation, true
	default:
		return 0, false
	}
}
