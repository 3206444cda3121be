// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import "testing"

func TestNewZeroFilled(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New(32): %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 32 {
		t.Errorf("Len() = %d, want 32", buffer.Len())
	}
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("byte %d = %d, want 0", index, value)
		}
	}
}

func TestNewRejectsNonPositive(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded, want error", size)
		}
	}
}

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("correct horse")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "correct horse" {
		t.Errorf("String() = %q, want %q", got, "correct horse")
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d = %d, want 0 after copy", index, value)
		}
	}
}

func TestNewFromStringEmpty(t *testing.T) {
	if _, err := NewFromString(""); err == nil {
		t.Fatal("NewFromString(\"\") succeeded, want error")
	}
}

func TestEqual(t *testing.T) {
	buffer, err := NewFromString("syt_token")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("syt_token")) {
		t.Error("Equal returned false for identical contents")
	}
	if buffer.Equal([]byte("syt_other")) {
		t.Error("Equal returned true for different contents")
	}
}

func TestCloseIdempotentAndPanicsAfter(t *testing.T) {
	buffer, err := NewFromString("value")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if buffer.Equal([]byte("value")) {
		t.Error("Equal returned true after Close")
	}

	defer func() {
		if recover() == nil {
			t.Error("String after Close did not panic")
		}
	}()
	_ = buffer.String()
}
