package config

import (
	"path/filepath"
	"testing"

	"monotone-sub001/pkg/store"
	"monotone-sub001/pkg/vpath"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := &Configuration{MaxPathDepth: 64, RsyncBlockSize: 4096, HashAlgorithm: store.HashAlgorithmSHA1}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := Save(path, &Configuration{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MaxPathDepth != DefaultMaxPathDepth {
		t.Fatalf("MaxPathDepth = %d, want default %d", got.MaxPathDepth, DefaultMaxPathDepth)
	}
	if got.RsyncBlockSize != DefaultRsyncBlockSize {
		t.Fatalf("RsyncBlockSize = %d, want default %d", got.RsyncBlockSize, DefaultRsyncBlockSize)
	}
	if got.HashAlgorithm != DefaultHashAlgorithm {
		t.Fatalf("HashAlgorithm = %v, want default %v", got.HashAlgorithm, DefaultHashAlgorithm)
	}
}

func TestApplyMaxPathDepth(t *testing.T) {
	original := vpath.MaxDepth
	defer func() { vpath.MaxDepth = original }()

	c := &Configuration{MaxPathDepth: 42}
	c.ApplyMaxPathDepth()
	if vpath.MaxDepth != 42 {
		t.Fatalf("vpath.MaxDepth = %d, want 42", vpath.MaxDepth)
	}
}
