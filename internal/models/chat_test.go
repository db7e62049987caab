package models

import (
	"errors"
	"testing"
)

func TestChatRequest_ValidateDefaults(t *testing.T) {
	r := &ChatRequest{Question: "what is the architecture?"}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.CollectionID != DefaultCollectionID {
		t.Errorf("collection_id = %s, want %s", r.CollectionID, DefaultCollectionID)
	}
	if r.TopK == nil || *r.TopK != DefaultTopK {
		t.Errorf("top_k should default to %d", DefaultTopK)
	}
}

func TestChatRequest_ValidateEmptyQuestion(t *testing.T) {
	r := &ChatRequest{Question: "   "}
	err := r.Validate()
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestChatRequest_ValidateTopKZero(t *testing.T) {
	zero := 0
	r := &ChatRequest{Question: "q", TopK: &zero}
	err := r.Validate()
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for top_k=0, got %v", err)
	}
}

func TestChatRequest_ValidateExplicitTopK(t *testing.T) {
	k := 7
	r := &ChatRequest{Question: "q", CollectionID: "docs", TopK: &k}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if *r.TopK != 7 || r.CollectionID != "docs" {
		t.Errorf("explicit fields should be preserved: %+v", r)
	}
}
