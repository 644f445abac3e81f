// detector_loader_test.go: Tests for the detector factory registry and loader
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"fmt"
	"sync"
	"testing"
)

func TestDetectorLoader_EmptyRef(t *testing.T) {
	if _, err := NewDetectorLoader("", nil); err == nil {
		t.Fatal("Expected error for empty detector reference")
	}
}

func TestDetectorLoader_NotFound(t *testing.T) {
	loader, err := NewDetectorLoader("no-such-detector", nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	if _, err := loader.Detector(); err == nil {
		t.Fatal("Expected detector-not-found error for unregistered reference")
	}
}

func TestDetectorLoader_FactoryError(t *testing.T) {
	RegisterDetectorFactory("broken-detector", func(logger Logger) (ValueDetector, error) {
		return nil, fmt.Errorf("factory exploded")
	})
	t.Cleanup(func() { UnregisterDetectorFactory("broken-detector") })

	loader, err := NewDetectorLoader("broken-detector", nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	if _, err := loader.Detector(); err == nil {
		t.Fatal("Expected creation error from failing factory")
	}
}

func TestDetectorLoader_Memoization(t *testing.T) {
	created, _ := registerFakeDetector(t, "memo-detector", newFakeDetector)

	loader, err := NewDetectorLoader("memo-detector", nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	first, err := loader.Detector()
	if err != nil {
		t.Fatalf("First detector access failed: %v", err)
	}

	// Concurrent accesses must all observe the same memoized instance.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance, err := loader.Detector()
			if err != nil {
				t.Errorf("Concurrent detector access failed: %v", err)
				return
			}
			if instance != first {
				t.Error("Concurrent access returned a different instance")
			}
		}()
	}
	wg.Wait()

	if got := created.Load(); got != 1 {
		t.Fatalf("Expected factory to run once, ran %d times", got)
	}
}

func TestDetectorLoader_ReleaseRecreates(t *testing.T) {
	created, last := registerFakeDetector(t, "release-detector", newFakeDetector)

	loader, err := NewDetectorLoader("release-detector", nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	first, err := loader.Detector()
	if err != nil {
		t.Fatalf("First detector access failed: %v", err)
	}

	if err := loader.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := last().closeCount.Load(); got != 1 {
		t.Fatalf("Expected one Close call on release, got %d", got)
	}

	second, err := loader.Detector()
	if err != nil {
		t.Fatalf("Detector access after release failed: %v", err)
	}
	if second == first {
		t.Fatal("Expected a fresh instance after release")
	}
	if got := created.Load(); got != 2 {
		t.Fatalf("Expected two factory runs, got %d", got)
	}
}

func TestDetectorLoader_ReleaseWithoutInstance(t *testing.T) {
	registerFakeDetector(t, "idle-detector", newFakeDetector)

	loader, err := NewDetectorLoader("idle-detector", nil)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	// Never instantiated; release must be a clean no-op.
	if err := loader.Release(); err != nil {
		t.Fatalf("Release without instance failed: %v", err)
	}
}
