// Package erasure adapts Reed-Solomon erasure coding to the Page Store's
// optional page-level redundancy: a page's bytes are split into data and
// parity shards so a bounded number of missing or corrupted shards can be
// reconstructed without a full replica read.
package erasure

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"fmt"
	"log/slog"

	"github.com/klauspost/reedsolomon"
)

// shardMetadataSize is 1 stuffing-count byte + a 16-byte md5 checksum.
const shardMetadataSize = 17

// Codec erasure-encodes and decodes page payloads for a fixed data/parity
// shard layout.
type Codec struct {
	dataShards   int
	parityShards int
	encoder      reedsolomon.Encoder
}

// NewCodec builds a Codec for the given data/parity shard counts.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards+parityShards > 256 {
		return nil, fmt.Errorf("erasure: data+parity shard count cannot exceed 256")
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{dataShards: dataShards, parityShards: parityShards, encoder: enc}, nil
}

// EncodePage splits page into data shards, computes parity shards, and
// returns the shard metadata (stuffing count + checksum) alongside the
// shards themselves.
func (c *Codec) EncodePage(page []byte) (shards [][]byte, metadata [][]byte, err error) {
	shards, err = c.encoder.Split(page)
	if err != nil {
		return nil, nil, err
	}
	if err := c.encoder.Encode(shards); err != nil {
		return nil, nil, err
	}

	metadata = make([][]byte, len(shards))
	for i := range shards {
		metadata[i] = c.shardMetadata(len(page), shards, i)
	}
	return shards, metadata, nil
}

func (c *Codec) shardMetadata(pageSize int, shards [][]byte, shardIndex int) []byte {
	checksum := md5.Sum(shards[shardIndex])
	m := make([]byte, shardMetadataSize)
	if pageSize%c.dataShards != 0 {
		m[0] = byte(c.dataShards - pageSize%c.dataShards)
	}
	copy(m[1:], checksum[:])
	return m
}

// DecodeResult is the outcome of DecodePage.
type DecodeResult struct {
	Page []byte
	// ReconstructedShards lists indices that were missing or failed their
	// checksum and had to be rebuilt; a caller may choose to persist the
	// repaired shard back to its store.
	ReconstructedShards []int
}

// DecodePage reverses EncodePage, reconstructing up to parityShards missing
// or corrupted shards.
func (c *Codec) DecodePage(shards [][]byte, metadata [][]byte) (*DecodeResult, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("erasure: shards must not be empty")
	}

	result := &DecodeResult{}
	if ok, _ := c.encoder.Verify(shards); !ok {
		slog.Debug("erasure: shard verification failed, attempting reconstruction")
		reconstructed, err := c.reconstructMissing(shards)
		if err != nil {
			return nil, err
		}
		result.ReconstructedShards = reconstructed
		if ok, _ := c.encoder.Verify(shards); !ok {
			reconstructed, err := c.reconstructCorrupted(shards, metadata)
			if err != nil {
				return nil, fmt.Errorf("erasure: reconstruction failed: %w", err)
			}
			result.ReconstructedShards = reconstructed
		}
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := c.encoder.Join(w, shards, len(shards[0])*c.dataShards); err != nil {
		return nil, fmt.Errorf("erasure: join failed: %w", err)
	}
	w.Flush()

	stuffed := int(metadata[0][0])
	page := make([]byte, buf.Len()-stuffed)
	copy(page, buf.Bytes())
	result.Page = page
	return result, nil
}

func (c *Codec) reconstructMissing(shards [][]byte) ([]int, error) {
	var missing []int
	present := make([]bool, len(shards))
	for i, s := range shards {
		if s == nil {
			missing = append(missing, i)
		} else {
			present[i] = true
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	if err := c.encoder.ReconstructSome(shards, invert(present)); err != nil {
		return nil, err
	}
	return missing, nil
}

func (c *Codec) reconstructCorrupted(shards [][]byte, metadata [][]byte) ([]int, error) {
	var corrupted []int
	for i := range shards {
		want := metadata[i][1:]
		got := md5.Sum(shards[i])
		if !bytes.Equal(want, got[:]) {
			corrupted = append(corrupted, i)
			shards[i] = nil
		}
	}
	if len(corrupted) == 0 {
		return nil, fmt.Errorf("erasure: no corrupted shard found to reconstruct")
	}
	if err := c.encoder.Reconstruct(shards); err != nil {
		return nil, err
	}
	if ok, err := c.encoder.Verify(shards); !ok {
		return nil, err
	}
	return corrupted, nil
}

func invert(present []bool) []bool {
	out := make([]bool, len(present))
	for i, p := range present {
		out[i] = !p
	}
	return out
}
