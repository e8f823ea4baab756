// Package signing coordinates contract preview, signature capture, artifact
// upload and dual-party finalization.
package signing

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/model"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/apperr"
	"github.com/Lorent-Bloom/lorentbloom/backend/pkg/logger"
)

const (
	pdfDataURLPrefix = "data:application/pdf;base64,"

	// updateAttempts bounds re-read and retry on version conflicts.
	updateAttempts = 3
)

type Orchestrator struct {
	docs     DocumentStore
	storage  Storage
	renderer Renderer
	notifier Notifier
	now      func() time.Time
}

func NewOrchestrator(docs DocumentStore, storage Storage, renderer Renderer, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		docs:     docs,
		storage:  storage,
		renderer: renderer,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GeneratePreview renders unsigned contract data and returns it as a PDF data URL.
func (o *Orchestrator) GeneratePreview(data *model.RentalContractData, locale string) (string, error) {
	if data == nil {
		return "", apperr.Validation("contract data is required")
	}
	pdf, err := o.renderer.Render(data, locale)
	if err != nil {
		return "", apperr.Wrap(apperr.KindFailed, apperr.CodeContractRender, err)
	}
	return pdfDataURLPrefix + base64.StdEncoding.EncodeToString(pdf), nil
}

// CreateContractInput describes the contract document of a placed order.
type CreateContractInput struct {
	OrderID         string
	Contract        model.RentalContractData
	RenterSignature *model.Signature
	Locale          string
}

// CreateAndUploadContract creates the order's document, attaches the renter's
// signature when given, renders and uploads the PDF and records its path.
// A failure leaves earlier steps in place: the document stays pending and the
// call can be repeated for the same order.
func (o *Orchestrator) CreateAndUploadContract(ctx context.Context, in CreateContractInput) (string, error) {
	if strings.TrimSpace(in.OrderID) == "" {
		return "", apperr.Validation("order id is required")
	}
	ctx = logger.WithOrder(ctx, in.OrderID)

	doc, err := o.docs.GetDocumentByOrderID(ctx, in.OrderID)
	switch {
	case err == nil:
		logger.Info(ctx, "reusing existing contract document", "document_id", doc.ID, "status", doc.Status)
	case apperr.KindOf(err) == apperr.KindNotFound:
		snapshot := in.Contract.WithSignatures(nil, nil)
		doc, err = o.docs.CreateDocument(ctx, &model.Document{
			OrderID:              in.OrderID,
			OwnerEmail:           in.Contract.Owner.Email,
			OwnerPersonalNumber:  in.Contract.Owner.PersonalNumber,
			RenterEmail:          in.Contract.Renter.Email,
			RenterPersonalNumber: in.Contract.Renter.PersonalNumber,
			Contract:             &snapshot,
		})
		if err != nil {
			return "", err
		}
		logger.Info(ctx, "contract document created", "document_id", doc.ID)
	default:
		return "", err
	}

	if in.RenterSignature != nil && doc.RenterSignature == nil {
		sig := o.stamp(*in.RenterSignature, in.Contract.Renter.Email)
		doc, err = o.docs.AddSignature(ctx, doc.ID, model.PartyRenter, sig)
		if err != nil {
			return "", err
		}
	}

	if _, err := o.publish(ctx, doc, in.Contract, in.Locale); err != nil {
		return doc.ID, err
	}
	return doc.ID, nil
}

// SubmitSignatureInput attaches one party's signature to a document.
type SubmitSignatureInput struct {
	DocumentID string
	Party      model.Party
	Signature  model.Signature
}

// SubmitContractSignature attaches a signature. It neither re-renders the PDF
// nor checks for completion; see FinalizeContract. Store failures are
// returned unchanged.
func (o *Orchestrator) SubmitContractSignature(ctx context.Context, in SubmitSignatureInput) (*model.Document, error) {
	sig := o.stamp(in.Signature, in.Signature.SignerEmail)
	return o.docs.AddSignature(ctx, in.DocumentID, in.Party, sig)
}

// FinalizeContract renders the contract with both signatures, stores it
// under the signed folder, marks the document signed and notifies both
// parties. A nil data uses the contract snapshot stored on the document.
// Notification failures are logged per recipient and never fail the call.
func (o *Orchestrator) FinalizeContract(ctx context.Context, orderID string, data *model.RentalContractData, locale string) (string, error) {
	ctx = logger.WithOrder(ctx, orderID)

	doc, err := o.docs.GetDocumentByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !doc.FullySigned() {
		return "", apperr.Conflict(apperr.CodeSignaturesMissing, "both parties must sign before the contract is finalized")
	}

	contract, err := contractFor(doc, data)
	if err != nil {
		return "", err
	}

	doc, err = o.publish(ctx, doc, contract, locale)
	if err != nil {
		return "", err
	}

	url, err := o.storage.URL(ctx, doc.SignedPath)
	if err != nil {
		logger.Warn(ctx, "failed to sign contract url", "path", doc.SignedPath, "error", err)
		url = ""
	}

	o.notifyParties(ctx, doc, contract, locale, url)
	logger.Info(ctx, "contract finalized", "document_id", doc.ID)
	return url, nil
}

// GetContractPDFURL returns a URL of the most authoritative artifact
// (signed, then partially signed, then unsigned) and the document status.
func (o *Orchestrator) GetContractPDFURL(ctx context.Context, orderID string) (string, model.DocumentStatus, error) {
	doc, err := o.docs.GetDocumentByOrderID(ctx, orderID)
	if err != nil {
		return "", "", err
	}

	path := doc.BestPath()
	if path == "" {
		return "", doc.Status, apperr.NotFound(apperr.CodeDocumentNotFound, "contract for order "+orderID+" has not been uploaded yet")
	}

	url, err := o.storage.URL(ctx, path)
	if err != nil {
		return "", doc.Status, apperr.Wrap(apperr.KindRemoteUnavailable, apperr.CodeContractUpload, err)
	}
	return url, doc.Status.Advance(statusOfPath(doc, path)), nil
}

// DocumentForParty returns the order's document when email belongs to one of
// its parties.
func (o *Orchestrator) DocumentForParty(ctx context.Context, orderID, email string) (*model.Document, model.Party, error) {
	doc, err := o.docs.GetDocumentByOrderID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	party, ok := doc.PartyFor(email)
	if !ok {
		return nil, "", apperr.Forbidden("you are not a party to this contract")
	}
	return doc, party, nil
}

// SignInput is a signature submitted by a signed-in customer for an order.
type SignInput struct {
	OrderID     string
	SignerEmail string
	Signature   model.Signature
	Locale      string
}

type SignResult struct {
	DocumentID string               `json:"document_id"`
	Party      model.Party          `json:"party"`
	Status     model.DocumentStatus `json:"status"`
	URL        string               `json:"url,omitempty"`
}

// SignContract attaches the signer's signature to the order's contract, then
// finalizes it once both parties have signed, or publishes the partially
// signed PDF otherwise.
func (o *Orchestrator) SignContract(ctx context.Context, in SignInput) (*SignResult, error) {
	ctx = logger.WithOrder(ctx, in.OrderID)

	doc, party, err := o.DocumentForParty(ctx, in.OrderID, in.SignerEmail)
	if err != nil {
		return nil, err
	}

	sig := in.Signature
	sig.SignerEmail = in.SignerEmail
	doc, err = o.SubmitContractSignature(ctx, SubmitSignatureInput{DocumentID: doc.ID, Party: party, Signature: sig})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "contract signed", "document_id", doc.ID, "party", party)

	if doc.FullySigned() {
		url, err := o.FinalizeContract(ctx, in.OrderID, nil, in.Locale)
		if err != nil {
			return nil, err
		}
		return &SignResult{DocumentID: doc.ID, Party: party, Status: model.StatusSigned, URL: url}, nil
	}

	contract, err := contractFor(doc, nil)
	if err != nil {
		return nil, err
	}
	doc, err = o.publish(ctx, doc, contract, in.Locale)
	if err != nil {
		return nil, err
	}
	url, status, err := o.GetContractPDFURL(ctx, in.OrderID)
	if err != nil {
		logger.Warn(ctx, "failed to resolve contract url", "error", err)
		status = doc.Status
	}
	return &SignResult{DocumentID: doc.ID, Party: party, Status: status, URL: url}, nil
}

// RegenerateContract re-renders the order's contract from its stored
// snapshot in its current signing state. No notifications are sent.
func (o *Orchestrator) RegenerateContract(ctx context.Context, orderID, locale string) (*model.Document, error) {
	ctx = logger.WithOrder(ctx, orderID)

	doc, err := o.docs.GetDocumentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	contract, err := contractFor(doc, nil)
	if err != nil {
		return nil, err
	}
	return o.publish(ctx, doc, contract, locale)
}

// publish renders contract with the document's signatures and uploads it to
// the folder matching how many parties have signed, then records the path.
func (o *Orchestrator) publish(ctx context.Context, doc *model.Document, contract model.RentalContractData, locale string) (*model.Document, error) {
	contract = mergePersonalNumbers(doc, contract)
	rendered := contract.WithSignatures(doc.OwnerSignature, doc.RenterSignature)

	pdf, err := o.renderer.Render(&rendered, locale)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFailed, apperr.CodeContractRender, err)
	}

	folder, status := model.FolderPending, model.StatusPending
	switch {
	case doc.FullySigned():
		folder, status = model.FolderSigned, model.StatusSigned
	case doc.OwnerSignature != nil || doc.RenterSignature != nil:
		folder, status = model.FolderPartial, model.StatusPartiallySigned
	}

	path := model.ObjectName(folder, doc.OrderID)
	if err := o.storage.Upload(ctx, path, pdf); err != nil {
		return nil, apperr.Wrap(apperr.KindRemoteUnavailable, apperr.CodeContractUpload, err)
	}
	logger.Info(ctx, "contract uploaded", "path", path, "bytes", len(pdf))

	snapshot := contract.WithSignatures(nil, nil)
	patch := model.DocumentPatch{Status: &status, Contract: &snapshot}
	switch folder {
	case model.FolderSigned:
		patch.SignedPath = &path
	case model.FolderPartial:
		patch.PartiallySignedPath = &path
	default:
		patch.UnsignedPath = &path
	}
	return o.update(ctx, doc.ID, doc.Version, patch)
}

// update applies patch, re-reading and retrying when another writer bumped
// the version in between.
func (o *Orchestrator) update(ctx context.Context, id string, version int, patch model.DocumentPatch) (*model.Document, error) {
	var lastErr error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		doc, err := o.docs.UpdateDocument(ctx, id, version, patch)
		if err == nil {
			return doc, nil
		}
		if apperr.CodeOf(err) != apperr.CodeVersionConflict {
			return nil, err
		}
		lastErr = err
		logger.Debug(ctx, "document version conflict, retrying", "document_id", id, "attempt", attempt+1)

		current, err := o.docs.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		version = current.Version
	}
	return nil, lastErr
}

func (o *Orchestrator) notifyParties(ctx context.Context, doc *model.Document, contract model.RentalContractData, locale, url string) {
	recipients := []model.ContractParty{
		{Name: contract.Owner.Name, Email: doc.OwnerEmail},
		{Name: contract.Renter.Name, Email: doc.RenterEmail},
	}
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		err := o.notifier.Notify(ctx, model.Notification{
			To:          r.Email,
			Name:        r.Name,
			OrderNumber: doc.OrderID,
			Template:    model.TemplateContractSigned,
			Locale:      locale,
			ContractURL: url,
		})
		if err != nil {
			logger.Error(ctx, "failed to notify contract party", "recipient", r.Email, "error", err)
		}
	}
}

func (o *Orchestrator) stamp(sig model.Signature, email string) model.Signature {
	if sig.SignerEmail == "" {
		sig.SignerEmail = email
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = o.now()
	}
	return sig
}

func contractFor(doc *model.Document, data *model.RentalContractData) (model.RentalContractData, error) {
	switch {
	case data != nil:
		return *data, nil
	case doc.Contract != nil:
		return *doc.Contract, nil
	}
	return model.RentalContractData{}, apperr.New(apperr.KindValidation, apperr.CodeInvalidDocument, "no contract data stored for order "+doc.OrderID)
}

// mergePersonalNumbers fills the parties' personal numbers. Values stored on
// the document win over the signature's, which win over the form's.
func mergePersonalNumbers(doc *model.Document, c model.RentalContractData) model.RentalContractData {
	c.Owner.PersonalNumber = firstNonEmpty(doc.OwnerPersonalNumber, sigPersonalNumber(doc.OwnerSignature), c.Owner.PersonalNumber)
	c.Renter.PersonalNumber = firstNonEmpty(doc.RenterPersonalNumber, sigPersonalNumber(doc.RenterSignature), c.Renter.PersonalNumber)
	return c
}

func sigPersonalNumber(s *model.Signature) string {
	if s == nil {
		return ""
	}
	return s.PersonalNumber
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func statusOfPath(doc *model.Document, path string) model.DocumentStatus {
	switch path {
	case doc.SignedPath:
		return model.StatusSigned
	case doc.PartiallySignedPath:
		return model.StatusPartiallySigned
	}
	return model.StatusPending
}
