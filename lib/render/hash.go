// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/blake3"
)

// Digest identifies a rendered frame. Equal digests mean the panel
// already shows these exact pixels and the push can be skipped.
type Digest [32]byte

// Hash digests a per-key image map in canonical key order.
func Hash(images map[int][]byte) Digest {
	keys := make([]int, 0, len(images))
	for key := range images {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	hasher := blake3.New()
	var header [8]byte
	for _, key := range keys {
		binary.LittleEndian.PutUint32(header[0:4], uint32(key))
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(images[key])))
		hasher.Write(header[:])
		hasher.Write(images[key])
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
