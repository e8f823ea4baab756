package model

import (
	"strings"
	"time"
)

// DocumentStatus tracks how far a rental contract has progressed through signing.
type DocumentStatus string

const (
	StatusPending         DocumentStatus = "pending"
	StatusPartiallySigned DocumentStatus = "partially_signed"
	StatusSigned          DocumentStatus = "signed"
)

func (s DocumentStatus) rank() int {
	switch s {
	case StatusPartiallySigned:
		return 1
	case StatusSigned:
		return 2
	default:
		return 0
	}
}

// Advance returns the later of s and next. Status never moves backwards.
func (s DocumentStatus) Advance(next DocumentStatus) DocumentStatus {
	if next.rank() > s.rank() {
		return next
	}
	return s
}

func (s DocumentStatus) Valid() bool {
	return s == StatusPending || s == StatusPartiallySigned || s == StatusSigned
}

// Party identifies one side of a rental contract.
type Party string

const (
	PartyOwner  Party = "owner"
	PartyRenter Party = "renter"
)

func (p Party) Valid() bool {
	return p == PartyOwner || p == PartyRenter
}

// Storage folders, one per artifact kind.
const (
	FolderPending = "pending"
	FolderPartial = "partial"
	FolderSigned  = "signed"
)

// ObjectName is the storage key of an order's contract artifact in folder.
func ObjectName(folder, orderID string) string {
	return folder + "/" + orderID + ".pdf"
}

type SignatureMethod string

const (
	MethodDraw   SignatureMethod = "draw"
	MethodType   SignatureMethod = "type"
	MethodUpload SignatureMethod = "upload"
	MethodCamera SignatureMethod = "camera"
)

func (m SignatureMethod) Valid() bool {
	switch m {
	case MethodDraw, MethodType, MethodUpload, MethodCamera:
		return true
	}
	return false
}

// Signature is a captured signature image plus signer metadata.
type Signature struct {
	Image          string          `json:"image"`
	Method         SignatureMethod `json:"method"`
	SignerName     string          `json:"signer_name"`
	SignerEmail    string          `json:"signer_email"`
	PersonalNumber string          `json:"personal_number,omitempty"`
	SignedAt       time.Time       `json:"signed_at"`
}

// ImageData returns the base64 payload without any data-URL prefix.
func (s Signature) ImageData() string {
	if i := strings.Index(s.Image, ","); i >= 0 && strings.HasPrefix(s.Image, "data:") {
		return s.Image[i+1:]
	}
	return s.Image
}

// Document is the persisted contract record of an order.
type Document struct {
	ID                   string              `json:"id"`
	OrderID              string              `json:"order_id"`
	OwnerEmail           string              `json:"owner_email"`
	OwnerPersonalNumber  string              `json:"owner_personal_number,omitempty"`
	RenterEmail          string              `json:"renter_email"`
	RenterPersonalNumber string              `json:"renter_personal_number,omitempty"`
	UnsignedPath         string              `json:"unsigned_path,omitempty"`
	PartiallySignedPath  string              `json:"partially_signed_path,omitempty"`
	SignedPath           string              `json:"signed_path,omitempty"`
	Status               DocumentStatus      `json:"status"`
	OwnerSignature       *Signature          `json:"owner_signature,omitempty"`
	RenterSignature      *Signature          `json:"renter_signature,omitempty"`
	Contract             *RentalContractData `json:"contract,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (d *Document) FullySigned() bool {
	return d.OwnerSignature != nil && d.RenterSignature != nil
}

func (d *Document) SignatureOf(p Party) *Signature {
	if p == PartyOwner {
		return d.OwnerSignature
	}
	return d.RenterSignature
}

// PartyFor resolves which side of the contract email belongs to.
func (d *Document) PartyFor(email string) (Party, bool) {
	switch {
	case email == "":
		return "", false
	case strings.EqualFold(email, d.OwnerEmail):
		return PartyOwner, true
	case strings.EqualFold(email, d.RenterEmail):
		return PartyRenter, true
	}
	return "", false
}

// BestPath returns the most authoritative artifact: signed, then partially
// signed, then unsigned.
func (d *Document) BestPath() string {
	switch {
	case d.SignedPath != "":
		return d.SignedPath
	case d.PartiallySignedPath != "":
		return d.PartiallySignedPath
	default:
		return d.UnsignedPath
	}
}

// DocumentPatch holds the path/status fields an update may change. Nil fields
// are left untouched.
type DocumentPatch struct {
	UnsignedPath        *string
	PartiallySignedPath *string
	SignedPath          *string
	Status              *DocumentStatus
	Contract            *RentalContractData
}

// Apply mutates d with the patch, keeping status monotonic.
func (p DocumentPatch) Apply(d *Document) {
	if p.UnsignedPath != nil {
		d.UnsignedPath = *p.UnsignedPath
	}
	if p.PartiallySignedPath != nil {
		d.PartiallySignedPath = *p.PartiallySignedPath
	}
	if p.SignedPath != nil {
		d.SignedPath = *p.SignedPath
	}
	if p.Status != nil {
		d.Status = d.Status.Advance(*p.Status)
	}
	if p.Contract != nil {
		d.Contract = p.Contract
	}
}
