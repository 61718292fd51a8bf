// Package serialization persists parameter data of graft models.
//
// The .graft format is a small binary container:
//
//	Format Structure:
//	  [0x00: 4 bytes  Magic "GRFT"]
//	  [0x04: 4 bytes  Version (uint32 LE)]
//	  [0x08: 4 bytes  Flags (uint32 LE)]
//	  [0x0C: 4 bytes  Reserved]
//	  [0x10: 8 bytes  Header size (uint64 LE)]
//	  [0x18: 8 bytes  Data size (uint64 LE)]
//	  [0x20: 32 bytes SHA-256 of the data section]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: little-endian values, 64-byte aligned]
//
// Tensors are stored in the order the model declares its parameters, so a
// file can be restored either by dotted path or by position. Only parameter
// data is persisted: gradients and optimizer state never are.
//
// A second, schema-free encoding is available through MarshalSnapshot: a
// protobuf wire message readable by any protobuf stack.
//
// Example usage:
//
//	// Save a model
//	err := serialization.SaveFile("xor.graft", model.NamedParameters(), serialization.WriteOptions{
//	    Model: "xor",
//	})
//
//	// Load it into a freshly constructed model
//	f, err := serialization.LoadFile("xor.graft")
//	err = serialization.Restore(f, fresh.NamedParameters(), serialization.ByName)
package serialization
