// Package config loads and saves the YAML-based tunables that govern
// roster, changeset, and store behavior: the maximum path depth a roster
// will accept, the rsync block size used by the store's delta engine, and
// the default content-hash algorithm new full-text puts are stored under.
//
// Grounded on pkg/encoding's LoadAndUnmarshalYAML/MarshalAndSave pattern
// (itself modeled on the teacher's project-file loading in
// cmd/mutagen/project), using gopkg.in/yaml.v2 for the format.
package config

import (
	"gopkg.in/yaml.v2"

	"monotone-sub001/pkg/encoding"
	"monotone-sub001/pkg/store"
	"monotone-sub001/pkg/vpath"
)

// Configuration holds the tunables read from a configuration file. Any
// field left at its zero value is replaced by its corresponding default
// when the configuration is loaded.
type Configuration struct {
	// MaxPathDepth bounds the depth of any path a roster will accept
	// (§4.1's bounded-depth invariant). Zero means "use the default".
	MaxPathDepth int `yaml:"maxPathDepth"`

	// RsyncBlockSize is the block size, in bytes, used when computing
	// rsync signatures and deltas for file content (§4.5, §6).
	RsyncBlockSize int `yaml:"rsyncBlockSize"`

	// HashAlgorithm names the content hash algorithm used for new
	// full-text puts into the store (§6).
	HashAlgorithm store.HashAlgorithm `yaml:"hashAlgorithm"`
}

// Default tunables, used whenever a Configuration field is left at its
// zero value.
const (
	DefaultMaxPathDepth   = 256
	DefaultRsyncBlockSize = 8192
)

// DefaultHashAlgorithm is the content hash algorithm new full-text puts are
// stored under when no explicit algorithm is configured.
var DefaultHashAlgorithm = store.HashAlgorithmSHA256

// applyDefaults fills any zero-valued field of c with its default.
func (c *Configuration) applyDefaults() {
	if c.MaxPathDepth == 0 {
		c.MaxPathDepth = DefaultMaxPathDepth
	}
	if c.RsyncBlockSize == 0 {
		c.RsyncBlockSize = DefaultRsyncBlockSize
	}
	if c.HashAlgorithm == store.HashAlgorithmDefault {
		c.HashAlgorithm = DefaultHashAlgorithm
	}
}

// Load reads a YAML configuration file from path, applying defaults to any
// field left unset.
func Load(path string) (*Configuration, error) {
	config := &Configuration{}
	if err := encoding.LoadAndUnmarshalYAML(path, config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

// Save marshals config as YAML and writes it to path.
func Save(path string, config *Configuration) error {
	return encoding.MarshalAndSave(path, func() ([]byte, error) {
		return marshalYAML(config)
	})
}

func marshalYAML(config *Configuration) ([]byte, error) {
	return yaml.Marshal(config)
}

// ApplyMaxPathDepth overrides the package-level vpath.MaxDepth bound with
// the configuration's value. It is not safe for concurrent use with
// roster validation and should only be called once, during startup.
func (c *Configuration) ApplyMaxPathDepth() {
	vpath.MaxDepth = c.MaxPathDepth
}
