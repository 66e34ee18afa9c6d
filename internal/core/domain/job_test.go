package domain

import (
	"errors"
	"testing"
)

func TestJobProgressPercent(t *testing.T) {
	j := &IndexJob{TotalFiles: 5, ProcessedFiles: 3, FailedFiles: 1}
	if got := j.ProgressPercent(); got != 80 {
		t.Errorf("ProgressPercent() = %d, want 80", got)
	}

	empty := &IndexJob{}
	if got := empty.ProgressPercent(); got != 0 {
		t.Errorf("ProgressPercent() on empty job = %d, want 0", got)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobPending.Terminal() || JobProcessing.Terminal() {
		t.Error("pending/processing should not be terminal")
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Error("completed/failed should be terminal")
	}
}

func TestIndexErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewIndexError(ErrorKindParse, "parse", cause)

	if !errors.Is(err, cause) {
		t.Error("IndexError should unwrap to its cause")
	}

	var ie *IndexError
	if !errors.As(error(err), &ie) {
		t.Fatal("errors.As should match *IndexError")
	}
	if ie.Kind != ErrorKindParse || ie.Step != "parse" {
		t.Errorf("unexpected kind/step: %s/%s", ie.Kind, ie.Step)
	}
	if ie.Message() != "boom" {
		t.Errorf("Message() = %q", ie.Message())
	}
}

func TestEmbeddingBatchError(t *testing.T) {
	err := &EmbeddingBatchError{Index: 3, Err: errors.New("bad input")}
	if err.Error() == "" {
		t.Fatal("expected message")
	}

	var be *EmbeddingBatchError
	wrapped := NewIndexError(ErrorKindEmbedding, "embed", err)
	if !errors.As(error(wrapped), &be) {
		t.Fatal("errors.As should find the batch error through IndexError")
	}
	if be.Index != 3 {
		t.Errorf("Index = %d, want 3", be.Index)
	}
}
