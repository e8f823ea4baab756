package model

import "testing"

func TestDocumentStatusAdvance(t *testing.T) {
	tests := []struct {
		name string
		from DocumentStatus
		to   DocumentStatus
		want DocumentStatus
	}{
		{"pending to partial", StatusPending, StatusPartiallySigned, StatusPartiallySigned},
		{"partial to signed", StatusPartiallySigned, StatusSigned, StatusSigned},
		{"pending to signed", StatusPending, StatusSigned, StatusSigned},
		{"signed stays signed", StatusSigned, StatusPending, StatusSigned},
		{"partial never reverts", StatusPartiallySigned, StatusPending, StatusPartiallySigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Advance(tt.to); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDocumentBestPath(t *testing.T) {
	doc := &Document{UnsignedPath: "pending/1.pdf"}
	if doc.BestPath() != "pending/1.pdf" {
		t.Errorf("Expected unsigned path, got %s", doc.BestPath())
	}

	doc.PartiallySignedPath = "partial/1.pdf"
	if doc.BestPath() != "partial/1.pdf" {
		t.Errorf("Expected partially signed path, got %s", doc.BestPath())
	}

	doc.SignedPath = "signed/1.pdf"
	if doc.BestPath() != "signed/1.pdf" {
		t.Errorf("Expected signed path, got %s", doc.BestPath())
	}
}

func TestDocumentPartyFor(t *testing.T) {
	doc := &Document{OwnerEmail: "owner@example.com", RenterEmail: "renter@example.com"}

	if p, ok := doc.PartyFor("OWNER@example.com"); !ok || p != PartyOwner {
		t.Errorf("Expected owner, got %s (%v)", p, ok)
	}
	if p, ok := doc.PartyFor("renter@example.com"); !ok || p != PartyRenter {
		t.Errorf("Expected renter, got %s (%v)", p, ok)
	}
	if _, ok := doc.PartyFor("stranger@example.com"); ok {
		t.Error("Expected stranger to match no party")
	}
	if _, ok := doc.PartyFor(""); ok {
		t.Error("Expected empty email to match no party")
	}
}

func TestDocumentPatchApply(t *testing.T) {
	doc := &Document{Status: StatusPartiallySigned, UnsignedPath: "pending/9.pdf"}
	path := "partial/9.pdf"
	pending := StatusPending

	DocumentPatch{PartiallySignedPath: &path, Status: &pending}.Apply(doc)

	if doc.PartiallySignedPath != path {
		t.Errorf("Expected partial path %s, got %s", path, doc.PartiallySignedPath)
	}
	if doc.UnsignedPath != "pending/9.pdf" {
		t.Error("Expected untouched unsigned path")
	}
	if doc.Status != StatusPartiallySigned {
		t.Errorf("Expected status to stay %s, got %s", StatusPartiallySigned, doc.Status)
	}
}

func TestSignatureImageData(t *testing.T) {
	sig := Signature{Image: "data:image/png;base64,iVBORw0KGgo="}
	if sig.ImageData() != "iVBORw0KGgo=" {
		t.Errorf("Expected prefix stripped, got %s", sig.ImageData())
	}

	raw := Signature{Image: "iVBORw0KGgo="}
	if raw.ImageData() != "iVBORw0KGgo=" {
		t.Errorf("Expected raw payload, got %s", raw.ImageData())
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName(FolderSigned, "000000042"); got != "signed/000000042.pdf" {
		t.Errorf("Expected signed/000000042.pdf, got %s", got)
	}
}
