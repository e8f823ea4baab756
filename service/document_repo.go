package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type documentRow struct {
	ID                   string `gorm:"primaryKey;size:36"`
	OrderID              string `gorm:"uniqueIndex;size:64;not null"`
	OwnerEmail           string `gorm:"size:255"`
	OwnerPersonalNumber  string `gorm:"size:32"`
	RenterEmail          string `gorm:"size:255"`
	RenterPersonalNumber string `gorm:"size:32"`
	UnsignedPath         string `gorm:"size:255"`
	PartiallySignedPath  string `gorm:"size:255"`
	SignedPath           string `gorm:"size:255"`
	Status               string `gorm:"size:32;not null;default:pending"`
	OwnerSignature       datatypes.JSON
	RenterSignature      datatypes.JSON
	Contract             datatypes.JSON
	Version              int `gorm:"not null;default:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (documentRow) TableName() string { return "documents" }

func (r *documentRow) toModel() (*model.Document, error) {
	doc := &model.Document{
		ID:                   r.ID,
		OrderID:              r.OrderID,
		OwnerEmail:           r.OwnerEmail,
		OwnerPersonalNumber:  r.OwnerPersonalNumber,
		RenterEmail:          r.RenterEmail,
		RenterPersonalNumber: r.RenterPersonalNumber,
		UnsignedPath:         r.UnsignedPath,
		PartiallySignedPath:  r.PartiallySignedPath,
		SignedPath:           r.SignedPath,
		Status:               model.DocumentStatus(r.Status),
		Version:              r.Version,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if err := decodeJSON(r.OwnerSignature, &doc.OwnerSignature); err != nil {
		return nil, err
	}
	if err := decodeJSON(r.RenterSignature, &doc.RenterSignature); err != nil {
		return nil, err
	}
	if err := decodeJSON(r.Contract, &doc.Contract); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeJSON[T any](raw datatypes.JSON, out **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	*out = &v
	return nil
}

func encodeJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// DocumentRepository persists contract documents in Postgres.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if err := checkNewDocument(doc); err != nil {
		return nil, err
	}

	row := documentRow{
		ID:                   doc.ID,
		OrderID:              doc.OrderID,
		OwnerEmail:           doc.OwnerEmail,
		OwnerPersonalNumber:  doc.OwnerPersonalNumber,
		RenterEmail:          doc.RenterEmail,
		RenterPersonalNumber: doc.RenterPersonalNumber,
		UnsignedPath:         doc.UnsignedPath,
		PartiallySignedPath:  doc.PartiallySignedPath,
		Status:               string(model.StatusPending),
		Version:              1,
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if doc.Contract != nil {
		raw, err := encodeJSON(doc.Contract)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, apperr.CodeDocumentCreate, err)
		}
		row.Contract = raw
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&documentRow{}).Where("order_id = ?", row.OrderID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Conflict(apperr.CodeDocumentExists, "document already exists for order "+doc.OrderID)
	}
	if err != nil {
		return nil, storeErr(apperr.CodeDocumentCreate, err)
	}
	return row.toModel()
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var row documentRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, documentNotFound(id)
	}
	if err != nil {
		return nil, storeErr(apperr.CodeDocumentNotFound, err)
	}
	return row.toModel()
}

func (r *DocumentRepository) GetDocumentByOrderID(ctx context.Context, orderID string) (*model.Document, error) {
	var row documentRow
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(apperr.CodeDocumentNotFound, "no document for order "+orderID)
	}
	if err != nil {
		return nil, storeErr(apperr.CodeDocumentNotFound, err)
	}
	return row.toModel()
}

// UpdateDocument writes the patch with a compare-and-swap on version.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, id string, expectedVersion int, patch model.DocumentPatch) (*model.Document, error) {
	current, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, versionConflict(id, expectedVersion, current.Version)
	}

	next := cloneDocument(current)
	patch.Apply(next)
	if err := checkDocument(next); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"unsigned_path":         next.UnsignedPath,
		"partially_signed_path": next.PartiallySignedPath,
		"signed_path":           next.SignedPath,
		"status":                string(next.Status),
		"version":               gorm.Expr("version + 1"),
		"updated_at":            time.Now().UTC(),
	}
	if patch.Contract != nil {
		raw, err := encodeJSON(next.Contract)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, apperr.CodeDocumentUpdate, err)
		}
		updates["contract"] = raw
	}

	res := r.db.WithContext(ctx).Model(&documentRow{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, storeErr(apperr.CodeDocumentUpdate, res.Error)
	}
	if res.RowsAffected == 0 {
		latest, err := r.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, versionConflict(id, expectedVersion, latest.Version)
	}
	return r.GetDocument(ctx, id)
}

// AddSignature sets only the party's signature column, and only while it is
// still empty, so concurrent signing by the other party is never overwritten.
// A personal number captured while signing replaces the stored one.
func (r *DocumentRepository) AddSignature(ctx context.Context, id string, party model.Party, sig model.Signature) (*model.Document, error) {
	if err := checkSignature(party, sig); err != nil {
		return nil, err
	}

	raw, err := encodeJSON(sig)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, apperr.CodeDocumentUpdate, err)
	}

	sigCol, pnCol := "owner_signature", "owner_personal_number"
	if party == model.PartyRenter {
		sigCol, pnCol = "renter_signature", "renter_personal_number"
	}

	res := r.db.WithContext(ctx).Model(&documentRow{}).
		Where("id = ? AND "+sigCol+" IS NULL", id).
		Updates(map[string]any{
			sigCol:       raw,
			pnCol:        gorm.Expr("COALESCE(NULLIF(CAST(? AS TEXT), ''), "+pnCol+")", sig.PersonalNumber),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, storeErr(apperr.CodeDocumentUpdate, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetDocument(ctx, id); err != nil {
			return nil, err
		}
		return nil, signatureExists(id, party)
	}
	return r.GetDocument(ctx, id)
}

// ListDocuments returns documents in creation order.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	var rows []documentRow
	if err := r.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, storeErr(apperr.CodeDocumentNotFound, err)
	}
	docs := make([]*model.Document, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func storeErr(code string, err error) error {
	return apperr.Wrap(apperr.KindRemoteUnavailable, code, err)
}
