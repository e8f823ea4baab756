package signing

import (
	"context"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
)

// DocumentStore persists contract documents. Implementations return
// *apperr.Error values; calls are independent and not transactional.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentByOrderID(ctx context.Context, orderID string) (*model.Document, error)
	UpdateDocument(ctx context.Context, id string, expectedVersion int, patch model.DocumentPatch) (*model.Document, error)
	AddSignature(ctx context.Context, id string, party model.Party, sig model.Signature) (*model.Document, error)
}

// Storage holds rendered PDF artifacts.
type Storage interface {
	Upload(ctx context.Context, objectName string, data []byte) error
	URL(ctx context.Context, objectName string) (string, error)
}

type Renderer interface {
	Render(data *model.RentalContractData, locale string) ([]byte, error)
}

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}
