package sam

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/unsafe"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/split"
)

const numHeaderShards = 64

type headerEntry struct {
	mu     sync.Mutex
	done   bool
	header *sam.Header
	err    error
}

type headerShard struct {
	mu      sync.Mutex
	headers map[string]*headerEntry
}

// HeaderCache is a sharded, thread-safe map from file path to the header of
// that file.  The first reader of a path loads the header; concurrent readers
// of the same path wait for it and share the result, error included.  A load
// that fails after the caller's context is done is not cached, and the next
// reader tries again.
type HeaderCache struct {
	shards [numHeaderShards]headerShard
}

// NewHeaderCache creates an empty cache.
func NewHeaderCache() *HeaderCache {
	c := &HeaderCache{}
	for i := range c.shards {
		c.shards[i].headers = make(map[string]*headerEntry)
	}
	return c
}

// qualify makes local paths absolute so that different spellings of a path
// share an entry.  URLs are kept as is.
func qualify(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Get returns the header of the SAM file at path.
func (c *HeaderCache) Get(ctx context.Context, path string) (*sam.Header, error) {
	key := qualify(path)
	h := seahash.Sum64(unsafe.StringToBytes(key))
	shard := &c.shards[int(h%uint64(numHeaderShards))]

	shard.mu.Lock()
	e, ok := shard.headers[key]
	if !ok {
		e = &headerEntry{}
		shard.headers[key] = e
	}
	shard.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.done {
		header, err := loadHeader(ctx, path)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		e.header, e.err, e.done = header, err, true
		if err == nil {
			log.Printf("sam: %s: cached header with %d references", key, len(header.Refs()))
		}
	}
	return e.header, e.err
}

// Len returns the approximate number of paths in the cache.  It is exact iff
// no other goroutine is using the cache.
func (c *HeaderCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.headers)
		s.mu.Unlock()
	}
	return n
}

func loadHeader(ctx context.Context, path string) (*sam.Header, error) {
	in, err := split.Open(ctx, split.Whole(path), split.DefaultOpts)
	if err != nil {
		return nil, err
	}
	h, err := ReadHeader(in.LineReader)
	if cerr := in.Close(ctx); err == nil && cerr != nil {
		err = errors.E(cerr, path)
	}
	if err != nil {
		return nil, errors.E(err, path)
	}
	return h, nil
}

// ReadHeader reads the "@" lines at the current position of in and parses
// them.  It stops before the first line that is not a header line.
func ReadHeader(in *split.LineReader) (*sam.Header, error) {
	var text []byte
	for {
		b, err := in.PeekByte()
		if err == io.EOF || (err == nil && b != '@') {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _, err := in.ReadLine(0)
		if err != nil {
			return nil, err
		}
		text = append(text, line...)
		text = append(text, '\n')
	}
	h, err := sam.NewHeader(text, nil)
	if err != nil {
		return nil, errors.E(errors.Integrity, "malformed SAM header", err)
	}
	return h, nil
}
