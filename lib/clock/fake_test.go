// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(2 * time.Second)

	fake.Advance(time.Second)
	select {
	case <-channel:
		t.Fatal("waiter fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(2 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(2*time.Second))
		}
	default:
		t.Fatal("waiter did not fire at its deadline")
	}
	if pending := fake.PendingTimers(); pending != 0 {
		t.Errorf("PendingTimers() = %d, want 0", pending)
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-fake.After(time.Minute)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine did not wake after Advance")
	}
}

func TestFakeSet(t *testing.T) {
	fake := Fake(epoch)
	later := epoch.Add(48 * time.Hour)
	fake.Set(later)
	if !fake.Now().Equal(later) {
		t.Errorf("Now() = %v, want %v", fake.Now(), later)
	}
}
