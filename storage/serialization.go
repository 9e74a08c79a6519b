// Copyright 2025 Halcyon Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"time"

	"github.com/halcyonlabs/ringsight/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Vectors use the fixed-width float32 serializer: embedding components
// carry no exploitable varint structure.
var float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)

// vectorEntryMUS is the hand-written MUS serializer for core.VectorEntry.
// Field order is part of the on-disk format and must not change without
// bumping the chunk schema version.
type vectorEntryMUS struct{}

// VectorEntryMUS serializes core.VectorEntry values.
var VectorEntryMUS = vectorEntryMUS{}

// Size returns the serialized size of an entry in bytes.
func (vectorEntryMUS) Size(e core.VectorEntry) (size int) {
	size = ord.String.Size(string(e.ID))
	size += ord.String.Size(e.Text)
	size += ord.String.Size(string(e.Metric))
	size += ord.String.Size(string(e.Day))
	size += ord.String.Size(e.SourceID)
	size += ord.String.Size(e.ModelVersion)
	size += varint.Uint64.Size(e.Fingerprint)
	size += float32SliceMUS.Size(e.Vector)
	size += varint.Int64.Size(e.InsertedAt.UnixMicro())
	size += varint.Int64.Size(e.UpdatedAt.UnixMicro())
	return size
}

// Marshal writes an entry into bs and returns the number of bytes written.
func (vectorEntryMUS) Marshal(e core.VectorEntry, bs []byte) (n int) {
	n = ord.String.Marshal(string(e.ID), bs)
	n += ord.String.Marshal(e.Text, bs[n:])
	n += ord.String.Marshal(string(e.Metric), bs[n:])
	n += ord.String.Marshal(string(e.Day), bs[n:])
	n += ord.String.Marshal(e.SourceID, bs[n:])
	n += ord.String.Marshal(e.ModelVersion, bs[n:])
	n += varint.Uint64.Marshal(e.Fingerprint, bs[n:])
	n += float32SliceMUS.Marshal(e.Vector, bs[n:])
	n += varint.Int64.Marshal(e.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(e.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

// Unmarshal reads an entry from bs and returns it with the number of
// bytes consumed.
func (vectorEntryMUS) Unmarshal(bs []byte) (e core.VectorEntry, n int, err error) {
	var (
		n1 int
		s  string
		i  int64
		u  uint64
	)

	s, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return e, n, err
	}
	e.ID = core.ChunkID(s)

	e.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}

	s, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.Metric = core.MetricType(s)

	s, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.Day = core.Day(s)

	e.SourceID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}

	e.ModelVersion, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}

	u, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.Fingerprint = u

	e.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}

	i, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.InsertedAt = time.UnixMicro(i).UTC()

	i, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.UpdatedAt = time.UnixMicro(i).UTC()

	return e, n, nil
}

// MarshalVectorEntry serializes a VectorEntry to bytes.
func MarshalVectorEntry(entry *core.VectorEntry) []byte {
	buf := make([]byte, VectorEntryMUS.Size(*entry))
	VectorEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*core.VectorEntry, error) {
	entry, _, err := VectorEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}
