package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

// SchemaVersion is the version of the serialized Session layout. Bump it
// whenever a field changes meaning.
const SchemaVersion = 1

var ErrUnknownSchema = errors.New("unknown checkout session schema")

type Step string

const (
	StepAddress  Step = "address"
	StepPayment  Step = "payment"
	StepContract Step = "contract"
	StepPlaced   Step = "placed"
)

// PlaceStep names one remote call of the place-order sequence.
type PlaceStep string

const (
	PlaceBillingAddress  PlaceStep = "billing_address"
	PlaceShippingAddress PlaceStep = "shipping_address"
	PlaceShippingMethod  PlaceStep = "shipping_method"
	PlacePaymentMethod   PlaceStep = "payment_method"
)

// Session is the checkout state of one customer between requests.
type Session struct {
	SchemaVersion     int                       `json:"schema_version"`
	Step              Step                      `json:"step"`
	CartID            string                    `json:"cart_id,omitempty"`
	BillingAddressID  int                       `json:"billing_address_id,omitempty"`
	ShippingAddressID int                       `json:"shipping_address_id,omitempty"`
	AddressesSynced   string                    `json:"addresses_synced,omitempty"`
	ShippingMethod    *model.ShippingMethod     `json:"shipping_method,omitempty"`
	PaymentMethod     string                    `json:"payment_method,omitempty"`
	Preview           *model.RentalContractData `json:"preview,omitempty"`
	Signature         *model.Signature          `json:"signature,omitempty"`
	AcceptedTerms     bool                      `json:"accepted_terms"`

	// Completed maps each finished place-order step to the fingerprint of
	// the input it ran with.
	Completed   map[PlaceStep]string `json:"completed,omitempty"`
	OrderNumber string               `json:"order_number,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func NewSession() *Session {
	return &Session{
		SchemaVersion: SchemaVersion,
		Step:          StepAddress,
		Completed:     make(map[PlaceStep]string),
	}
}

// Dehydrate serializes s.
func (s *Session) Dehydrate() ([]byte, error) {
	return json.Marshal(s)
}

// Hydrate restores a serialized session. Sessions written with another
// schema version are rejected with ErrUnknownSchema.
func Hydrate(data []byte) (*Session, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if probe.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, probe.SchemaVersion)
	}

	s := NewSession()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Completed == nil {
		s.Completed = make(map[PlaceStep]string)
	}
	return s, nil
}

// SessionBackend stores serialized sessions by key. Load returns nil data
// when nothing is stored.
type SessionBackend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Sessions loads and saves checkout sessions on a backend.
type Sessions struct {
	backend SessionBackend
	now     func() time.Time
}

func NewSessions(backend SessionBackend) *Sessions {
	return &Sessions{backend: backend, now: time.Now}
}

// Load returns the stored session for key, or a fresh one when none is
// stored or the stored one cannot be hydrated.
func (s *Sessions) Load(ctx context.Context, key string) (*Session, error) {
	data, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return NewSession(), nil
	}

	sess, err := Hydrate(data)
	if err != nil {
		logger.Warn(ctx, "discarding checkout session", "error", err)
		return NewSession(), nil
	}
	return sess, nil
}

func (s *Sessions) Save(ctx context.Context, key string, sess *Session) error {
	sess.SchemaVersion = SchemaVersion
	sess.UpdatedAt = s.now().UTC()
	data, err := sess.Dehydrate()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.backend.Save(ctx, key, data)
}

func (s *Sessions) Clear(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// MemorySessionStore keeps serialized sessions in process memory.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string][]byte)}
}

func (m *MemorySessionStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.data[key]; ok {
		return append([]byte(nil), d...), nil
	}
	return nil, nil
}

func (m *MemorySessionStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
