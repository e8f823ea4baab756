package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/google/uuid"
)

// MemoryDocumentStore keeps contract documents in process memory. It is the
// store used by the signing and handler tests; serve always runs on the
// database repository.
type MemoryDocumentStore struct {
	documents map[string]*model.Document
	byOrder   map[string]string
	mu        sync.RWMutex
	now       func() time.Time
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		documents: make(map[string]*model.Document),
		byOrder:   make(map[string]string),
		now:       time.Now,
	}
}

func (s *MemoryDocumentStore) CreateDocument(_ context.Context, doc *model.Document) (*model.Document, error) {
	if err := checkNewDocument(doc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[doc.OrderID]; ok {
		return nil, apperr.Conflict(apperr.CodeDocumentExists, "document already exists for order "+doc.OrderID)
	}

	stored := cloneDocument(doc)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.Status = model.StatusPending
	stored.SignedPath = ""
	stored.Version = 1
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt

	s.documents[stored.ID] = stored
	s.byOrder[stored.OrderID] = stored.ID
	return cloneDocument(stored), nil
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, documentNotFound(id)
	}
	return cloneDocument(doc), nil
}

func (s *MemoryDocumentStore) GetDocumentByOrderID(_ context.Context, orderID string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byOrder[orderID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeDocumentNotFound, "no document for order "+orderID)
	}
	return cloneDocument(s.documents[id]), nil
}

// UpdateDocument applies patch if the stored version still equals expectedVersion.
func (s *MemoryDocumentStore) UpdateDocument(_ context.Context, id string, expectedVersion int, patch model.DocumentPatch) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, documentNotFound(id)
	}
	if doc.Version != expectedVersion {
		return nil, versionConflict(id, expectedVersion, doc.Version)
	}

	next := cloneDocument(doc)
	patch.Apply(next)
	if err := checkDocument(next); err != nil {
		return nil, err
	}
	next.Version++
	next.UpdatedAt = s.now()

	s.documents[id] = next
	return cloneDocument(next), nil
}

// AddSignature attaches sig to the party's field only. The other party's
// field is never touched, so owner and renter may sign concurrently. A
// personal number captured while signing replaces the stored one.
func (s *MemoryDocumentStore) AddSignature(_ context.Context, id string, party model.Party, sig model.Signature) (*model.Document, error) {
	if err := checkSignature(party, sig); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, documentNotFound(id)
	}
	if doc.SignatureOf(party) != nil {
		return nil, signatureExists(id, party)
	}

	stored := sig
	next := cloneDocument(doc)
	switch party {
	case model.PartyOwner:
		next.OwnerSignature = &stored
		if sig.PersonalNumber != "" {
			next.OwnerPersonalNumber = sig.PersonalNumber
		}
	case model.PartyRenter:
		next.RenterSignature = &stored
		if sig.PersonalNumber != "" {
			next.RenterPersonalNumber = sig.PersonalNumber
		}
	}
	next.Version++
	next.UpdatedAt = s.now()

	s.documents[id] = next
	return cloneDocument(next), nil
}

// ListDocuments returns every document, oldest first.
func (s *MemoryDocumentStore) ListDocuments(_ context.Context) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, cloneDocument(d))
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func cloneDocument(d *model.Document) *model.Document {
	out := *d
	if d.OwnerSignature != nil {
		sig := *d.OwnerSignature
		out.OwnerSignature = &sig
	}
	if d.RenterSignature != nil {
		sig := *d.RenterSignature
		out.RenterSignature = &sig
	}
	if d.Contract != nil {
		c := *d.Contract
		c.Items = append([]model.ContractItem(nil), d.Contract.Items...)
		c.Taxes = append([]model.Tax(nil), d.Contract.Taxes...)
		out.Contract = &c
	}
	return &out
}

func checkNewDocument(doc *model.Document) error {
	if doc == nil || strings.TrimSpace(doc.OrderID) == "" {
		return apperr.New(apperr.KindValidation, apperr.CodeInvalidDocument, "order id is required")
	}
	if doc.OwnerSignature != nil || doc.RenterSignature != nil {
		return apperr.New(apperr.KindValidation, apperr.CodeInvalidDocument, "signatures are attached after creation")
	}
	return nil
}

// checkDocument enforces that a signed artifact or status requires both signatures.
func checkDocument(d *model.Document) error {
	if !d.Status.Valid() {
		return apperr.New(apperr.KindValidation, apperr.CodeInvalidDocument, "unknown status "+string(d.Status))
	}
	if (d.SignedPath != "" || d.Status == model.StatusSigned) && !d.FullySigned() {
		return apperr.Conflict(apperr.CodeSignaturesMissing, "document "+d.ID+" is missing a signature")
	}
	return nil
}

func checkSignature(party model.Party, sig model.Signature) error {
	if !party.Valid() {
		return apperr.Validation("unknown party " + string(party))
	}
	if sig.ImageData() == "" {
		return apperr.Validation("signature image is required")
	}
	if !sig.Method.Valid() {
		return apperr.Validation("unknown signature method " + string(sig.Method))
	}
	return nil
}

func documentNotFound(id string) error {
	return apperr.NotFound(apperr.CodeDocumentNotFound, "document "+id+" not found")
}

func signatureExists(id string, party model.Party) error {
	return apperr.Conflict(apperr.CodeSignatureExists, string(party)+" has already signed document "+id)
}

func versionConflict(id string, expected, actual int) error {
	return apperr.New(apperr.KindConflict, apperr.CodeVersionConflict,
		fmt.Sprintf("document %s changed (expected version %d, found %d)", id, expected, actual))
}
