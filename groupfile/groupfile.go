// Package groupfile reads and writes group files: JSON documents that assign
// patch paths to numbered groups of patients.
//
// Two on-disk shapes exist. The chunk shape is
//
//	{"chunks": [{"id": 0, "imgs": ["/path/a.png", ...]}, ...]}
//
// where chunk id i holds group i+1. The keyed shape is
//
//	{"group_1": ["/path/a.png", ...], "group_2": [...]}
package groupfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/cvsplit"
	"github.com/carbocation/pfx"
)

type Format int

const (
	FormatChunks Format = iota
	FormatKeyed
)

func (f Format) String() string {
	switch f {
	case FormatChunks:
		return "chunks"
	case FormatKeyed:
		return "keyed"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps "chunks" or "keyed" onto its Format.
func ParseFormat(s string) (Format, error) {
	for _, f := range []Format{FormatChunks, FormatKeyed} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("group file format %q is not one of %s or %s", s, FormatChunks, FormatKeyed)
}

const keyPrefix = "group_"

// Groups maps a group identifier (1..N) onto its patch paths.
type Groups map[int][]string

// IDs returns the group identifiers in ascending order.
func (g Groups) IDs() []int {
	out := make([]int, 0, len(g))
	for id := range g {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Validate checks that the identifiers are exactly 1..N.
func (g Groups) Validate() error {
	for i, id := range g.IDs() {
		if id != i+1 {
			return fmt.Errorf("group identifiers must run from 1 to %d without gaps, but found %v", len(g), g.IDs())
		}
	}

	return nil
}

type chunk struct {
	ID   int      `json:"id"`
	Imgs []string `json:"imgs"`
}

type chunkFile struct {
	Chunks []chunk `json:"chunks"`
}

// Read loads a group file from a local or gs:// path, detecting its shape. At
// least two groups with identifiers 1..N are required.
func Read(ctx context.Context, path string, client *storage.Client) (Groups, Format, error) {
	fileBytes, err := cvsplit.ReadAll(ctx, path, client)
	if err != nil {
		return nil, 0, err
	}

	groups, format, err := Decode(fileBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	if len(groups) < 2 {
		return nil, 0, fmt.Errorf("%s: need at least 2 groups to make splits, found %d", path, len(groups))
	}

	return groups, format, nil
}

// Decode parses group file content in either shape.
func Decode(fileBytes []byte) (Groups, Format, error) {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(fileBytes, &raw); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
		return nil, 0, pfx.Err(err)
	}

	var (
		groups Groups
		format Format
		err    error
	)
	if _, isChunks := raw["chunks"]; isChunks {
		format = FormatChunks
		groups, err = decodeChunks(fileBytes)
	} else {
		format = FormatKeyed
		groups, err = decodeKeyed(raw)
	}
	if err != nil {
		return nil, 0, err
	}

	if err := groups.Validate(); err != nil {
		return nil, 0, err
	}

	return groups, format, nil
}

func decodeChunks(fileBytes []byte) (Groups, error) {
	var cf chunkFile
	if err := json.Unmarshal(fileBytes, &cf); err != nil {
		return nil, pfx.Err(err)
	}

	out := make(Groups, len(cf.Chunks))
	for _, c := range cf.Chunks {
		if _, exists := out[c.ID+1]; exists {
			return nil, fmt.Errorf("chunk id %d appears more than once", c.ID)
		}
		out[c.ID+1] = c.Imgs
	}

	return out, nil
}

func decodeKeyed(raw map[string]json.RawMessage) (Groups, error) {
	out := make(Groups, len(raw))
	for key, msg := range raw {
		id, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			return nil, fmt.Errorf("group key %q is neither %s<N> nor <N>", key, keyPrefix)
		}
		if _, exists := out[id]; exists {
			return nil, fmt.Errorf("group %d appears more than once", id)
		}

		var paths []string
		if err := json.Unmarshal(msg, &paths); err != nil {
			return nil, pfx.Err(fmt.Errorf("group key %q: %w", key, err))
		}
		out[id] = paths
	}

	return out, nil
}

// Encode serializes the groups in the requested shape, with groups in
// ascending identifier order. Nil groups are written as empty lists.
func Encode(groups Groups, format Format) ([]byte, error) {
	var doc interface{}

	switch format {
	case FormatChunks:
		cf := chunkFile{Chunks: make([]chunk, 0, len(groups))}
		for _, id := range groups.IDs() {
			cf.Chunks = append(cf.Chunks, chunk{ID: id - 1, Imgs: nonNil(groups[id])})
		}
		doc = cf
	case FormatKeyed:
		// encoding/json sorts map keys, which would place group_10 before
		// group_2, so the object is assembled by hand.
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, id := range groups.IDs() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(keyPrefix + strconv.Itoa(id))
			val, err := json.Marshal(nonNil(groups[id]))
			if err != nil {
				return nil, pfx.Err(err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown group file format %v", format)
	}

	b, err := json.Marshal(doc)
	return b, pfx.Err(err)
}

// Write serializes the groups to a local or gs:// path.
func Write(ctx context.Context, path string, groups Groups, format Format, client *storage.Client) error {
	b, err := Encode(groups, format)
	if err != nil {
		return err
	}

	w, err := cvsplit.Create(ctx, path, client)
	if err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		w.Close()
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	if err := w.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

// Convert re-encodes group file content into the requested shape.
func Convert(fileBytes []byte, to Format) ([]byte, error) {
	groups, _, err := Decode(fileBytes)
	if err != nil {
		return nil, err
	}

	return Encode(groups, to)
}

func nonNil(paths []string) []string {
	if paths == nil {
		return []string{}
	}
	return paths
}
