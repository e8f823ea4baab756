package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversationRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	OrderID     string `gorm:"uniqueIndex;size:64;not null"`
	Owner       datatypes.JSON
	Receiver    datatypes.JSON
	CurrentStep string `gorm:"size:32"`
	CreatedAt   time.Time
}

func (conversationRow) TableName() string { return "conversations" }

func (r *conversationRow) toModel() (*model.Conversation, error) {
	c := &model.Conversation{
		ID:          r.ID,
		OrderID:     r.OrderID,
		CurrentStep: r.CurrentStep,
		CreatedAt:   r.CreatedAt,
	}
	var owner, receiver *model.Participant
	if err := decodeJSON(r.Owner, &owner); err != nil {
		return nil, err
	}
	if err := decodeJSON(r.Receiver, &receiver); err != nil {
		return nil, err
	}
	if owner != nil {
		c.Owner = *owner
	}
	if receiver != nil {
		c.Receiver = *receiver
	}
	return c, nil
}

type messageRow struct {
	ID             string `gorm:"primaryKey;size:36"`
	ConversationID string `gorm:"index;size:36;not null"`
	SenderEmail    string `gorm:"size:255;not null"`
	Body           string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

func (messageRow) TableName() string { return "conversation_messages" }

type readCursorRow struct {
	ConversationID string `gorm:"primaryKey;size:36"`
	UserEmail      string `gorm:"primaryKey;size:255"`
	LastReadAt     time.Time
}

func (readCursorRow) TableName() string { return "conversation_read_cursors" }

// ConversationRepository stores order conversations, their messages and
// per-participant read cursors.
type ConversationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureForOrder returns the order's conversation, creating it on first use.
func (r *ConversationRepository) EnsureForOrder(ctx context.Context, orderID string, owner, receiver model.Participant) (*model.Conversation, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperr.Validation("order id is required")
	}

	existing, err := r.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	ownerJSON, err := encodeJSON(owner)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, apperr.CodeConversation, err)
	}
	receiverJSON, err := encodeJSON(receiver)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, apperr.CodeConversation, err)
	}

	row := conversationRow{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		Owner:       ownerJSON,
		Receiver:    receiverJSON,
		CurrentStep: model.StepOrderPlaced,
		CreatedAt:   r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		// lost a creation race with another request for the same order
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByOrderID(ctx, orderID)
		}
		return nil, storeErr(apperr.CodeConversation, err)
	}
	return row.toModel()
}

func (r *ConversationRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Conversation, error) {
	var row conversationRow
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(apperr.CodeConversation, "no conversation for order "+orderID)
	}
	if err != nil {
		return nil, storeErr(apperr.CodeConversation, err)
	}
	return row.toModel()
}

func (r *ConversationRepository) PostMessage(ctx context.Context, conversationID, senderEmail, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("message body is required")
	}

	row := messageRow{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderEmail:    senderEmail,
		Body:           body,
		CreatedAt:      r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storeErr(apperr.CodeConversation, err)
	}
	return row.toModel(), nil
}

// ListMessages returns up to limit messages, oldest first. A limit of zero
// returns all of them.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []messageRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, storeErr(apperr.CodeConversation, err)
	}
	out := make([]model.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, nil
}

// MarkRead sets the participant's read cursor to at.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, email string, at time.Time) error {
	row := readCursorRow{ConversationID: conversationID, UserEmail: email, LastReadAt: at.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_email"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at"}),
	}).Create(&row).Error
	if err != nil {
		return storeErr(apperr.CodeConversation, err)
	}
	return nil
}

// UnreadCount counts messages from the other participant newer than email's cursor.
func (r *ConversationRepository) UnreadCount(ctx context.Context, conversationID, email string) (int64, error) {
	var cursor readCursorRow
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_email = ?", conversationID, email).
		First(&cursor).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, storeErr(apperr.CodeConversation, err)
	}

	q := r.db.WithContext(ctx).Model(&messageRow{}).
		Where("conversation_id = ? AND sender_email <> ?", conversationID, email)
	if !cursor.LastReadAt.IsZero() {
		q = q.Where("created_at > ?", cursor.LastReadAt)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, storeErr(apperr.CodeConversation, err)
	}
	return n, nil
}

func (r *messageRow) toModel() *model.Message {
	return &model.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderEmail:    r.SenderEmail,
		Body:           r.Body,
		CreatedAt:      r.CreatedAt,
	}
}
