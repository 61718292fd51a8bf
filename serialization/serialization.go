// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialization saves and restores the parameter data of graft models.
//
// # Basic Usage
//
//	err := serialization.SaveFile("xor.graft", model.NamedParameters(), serialization.WriteOptions{
//	    Model: "xor",
//	})
//
//	f, err := serialization.LoadFile("xor.graft")
//	err = serialization.Restore(f, fresh.NamedParameters(), serialization.ByName)
//
// Files carry a SHA-256 checksum of their data section and are verified on
// load. Gradients and optimizer state are never persisted.
package serialization

import (
	"io"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/serialization"
)

// File is a decoded .graft file.
type File = serialization.File

// Header is the JSON header of a .graft file.
type Header = serialization.Header

// TensorMeta describes one stored tensor.
type TensorMeta = serialization.TensorMeta

// StoredTensor is one decoded tensor.
type StoredTensor = serialization.StoredTensor

// WriteOptions configures Write and SaveFile.
type WriteOptions = serialization.WriteOptions

// ReaderOptions configures Read.
type ReaderOptions = serialization.ReaderOptions

// ValidationError details a rejected file or restore.
type ValidationError = serialization.ValidationError

// Mode selects how stored tensors are matched to parameters.
type Mode = serialization.Mode

// Restore modes.
const (
	ByName     = serialization.ByName
	ByPosition = serialization.ByPosition
)

// Storage data types.
const (
	DTypeFloat32 = serialization.DTypeFloat32
	DTypeFloat64 = serialization.DTypeFloat64
)

// Errors returned while reading, validating and restoring.
var (
	ErrChecksumMismatch   = serialization.ErrChecksumMismatch
	ErrInvalidMagic       = serialization.ErrInvalidMagic
	ErrUnsupportedVersion = serialization.ErrUnsupportedVersion
	ErrUnsupportedDType   = serialization.ErrUnsupportedDType
	ErrOutOfBounds        = serialization.ErrOutOfBounds
	ErrUnknownTensor      = serialization.ErrUnknownTensor
	ErrMissingTensor      = serialization.ErrMissingTensor
	ErrShapeMismatch      = serialization.ErrShapeMismatch
	ErrCountMismatch      = serialization.ErrCountMismatch
	ErrMalformedSnapshot  = serialization.ErrMalformedSnapshot
)

// Write encodes params as a .graft stream.
func Write(w io.Writer, params []graph.NamedParameter, opts WriteOptions) error {
	return serialization.Write(w, params, opts)
}

// SaveFile writes params to path.
func SaveFile(path string, params []graph.NamedParameter, opts WriteOptions) error {
	return serialization.SaveFile(path, params, opts)
}

// Read decodes a .graft stream.
func Read(r io.Reader, opts ReaderOptions) (*File, error) {
	return serialization.Read(r, opts)
}

// LoadFile reads and strictly validates the file at path.
func LoadFile(path string) (*File, error) {
	return serialization.LoadFile(path)
}

// Restore copies stored data into params. Nothing is copied unless every
// parameter matches.
func Restore(f *File, params []graph.NamedParameter, mode Mode) error {
	return serialization.Restore(f, params, mode)
}

// MarshalSnapshot encodes params as a protobuf wire message.
func MarshalSnapshot(model string, params []graph.NamedParameter) []byte {
	return serialization.MarshalSnapshot(model, params)
}

// UnmarshalSnapshot decodes a message produced by MarshalSnapshot.
func UnmarshalSnapshot(b []byte) (*File, error) {
	return serialization.UnmarshalSnapshot(b)
}
