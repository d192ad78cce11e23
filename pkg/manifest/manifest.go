// Package manifest records and verifies the checksum of a results artifact.
//
// A manifest is a YAML sidecar written next to the artifact. It carries no
// timestamps, so rebuilding unchanged inputs reproduces it byte for byte.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FormatVersion identifies the manifest layout.
const FormatVersion = 1

// SidecarSuffix is appended to the artifact path to name its manifest.
const SidecarSuffix = ".manifest.yaml"

// Manifest verification errors.
var (
	ErrNoHash       = errors.New("no hash found in manifest")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrSizeMismatch = errors.New("size mismatch")
)

// Manifest describes one artifact.
type Manifest struct {
	Version           int      `yaml:"version"`
	Artifact          string   `yaml:"artifact"`
	SHA256            string   `yaml:"sha256"`
	Bytes             int      `yaml:"bytes"`
	Validated         bool     `yaml:"validated"`
	Years             []string `yaml:"years"`
	Contests          int      `yaml:"contests"`
	Results           int      `yaml:"results"`
	Counties          int      `yaml:"counties"`
	MarginDenominator string   `yaml:"margin_denominator"`
	ReferenceVersion  int      `yaml:"reference_version"`
	OverridesVersion  int      `yaml:"overrides_version"`
}

// Info carries the run facts recorded alongside the checksum.
type Info struct {
	Validated         bool
	Years             []string
	Contests          int
	Results           int
	Counties          int
	MarginDenominator string
	ReferenceVersion  int
	OverridesVersion  int
}

// CalculateHash computes the hex SHA-256 of data.
func CalculateHash(data []byte) string {
	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:])
}

// Build creates the manifest for an artifact's bytes.
func Build(artifactPath string, data []byte, info Info) *Manifest {
	years := info.Years
	if years == nil {
		years = []string{}
	}

	return &Manifest{
		Version:           FormatVersion,
		Artifact:          filepath.Base(artifactPath),
		SHA256:            CalculateHash(data),
		Bytes:             len(data),
		Validated:         info.Validated,
		Years:             years,
		Contests:          info.Contests,
		Results:           info.Results,
		Counties:          info.Counties,
		MarginDenominator: info.MarginDenominator,
		ReferenceVersion:  info.ReferenceVersion,
		OverridesVersion:  info.OverridesVersion,
	}
}

// SidecarPath returns the default manifest path for an artifact.
func SidecarPath(artifactPath string) string {
	return artifactPath + SidecarSuffix
}

// Marshal serializes the manifest.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return data, nil
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// Verify checks data against the manifest.
func (m *Manifest) Verify(data []byte) error {
	if m.SHA256 == "" {
		return ErrNoHash
	}

	if m.Bytes != len(data) {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, m.Bytes, len(data))
	}

	calculated := CalculateHash(data)
	if calculated != m.SHA256 {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, m.SHA256, calculated)
	}

	return nil
}

// VerifyFile loads both files and verifies the artifact. An empty
// manifestPath selects the sidecar.
func VerifyFile(artifactPath, manifestPath string) (*Manifest, error) {
	if manifestPath == "" {
		manifestPath = SidecarPath(artifactPath)
	}

	m, err := Load(manifestPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return m, fmt.Errorf("failed to read artifact: %w", err)
	}

	return m, m.Verify(data)
}
