package validate

import (
	"strings"
	"testing"

	"github.com/mycelian/postybirb/internal/model"
)

func TestID(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expectError bool
	}{
		{"valid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", false},
		{"empty", "", true},
		{"not uuid", "abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ID("id", tt.value)
			if (err != nil) != tt.expectError {
				t.Fatalf("ID(%q) error = %v, expectError %v", tt.value, err, tt.expectError)
			}
		})
	}
}

func TestSubmissionType(t *testing.T) {
	if got, err := SubmissionType("FILE"); err != nil || got != model.SubmissionTypeFile {
		t.Fatalf("FILE: got %q err %v", got, err)
	}
	if _, err := SubmissionType("file"); err == nil {
		t.Fatalf("expected lowercase kind to be rejected")
	}
}

func TestCreateAccount(t *testing.T) {
	if err := CreateAccount("", "test"); err == nil {
		t.Fatalf("expected name error")
	}
	if err := CreateAccount("a", ""); err == nil {
		t.Fatalf("expected website error")
	}
	if err := CreateAccount(strings.Repeat("a", 101), "test"); err == nil {
		t.Fatalf("expected length error")
	}
	if err := CreateAccount("main", "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSubmission_NameLength(t *testing.T) {
	if err := CreateSubmission(strings.Repeat("x", 257)); err == nil {
		t.Fatalf("expected length error")
	}
}
