package cvsplit

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZlib:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

// Checked in order, longest signatures first.
var byteCodeSigs = []struct {
	DataType
	Sig []byte
}{
	{DataTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{DataTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{DataTypeGzip, []byte{0x1f, 0x8b, 0x08}},
	{DataTypeBZip2, []byte{0x42, 0x5a, 0x68}},
	{DataTypeZlib, []byte{0x78, 0x01}},
	{DataTypeZlib, []byte{0x78, 0x5e}},
	{DataTypeZlib, []byte{0x78, 0x9c}},
	{DataTypeZlib, []byte{0x78, 0xda}},
}

// DetectDataType peeks at the head of the stream and matches it against the
// known compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475 . Nothing is consumed from r.
func DetectDataType(r *bufio.Reader) (DataType, error) {
	buff, err := r.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

Outer:
	for _, candidate := range byteCodeSigs {
		if len(buff) < len(candidate.Sig) {
			continue
		}
		for position := range candidate.Sig {
			if buff[position] != candidate.Sig[position] {
				continue Outer
			}
		}
		return candidate.DataType, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloser wraps rc with a decompressor if its content is
// compressed. Closing the result closes rc.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, DataType, error) {
	br := bufio.NewReader(rc)

	dt, err := DetectDataType(br)
	if err != nil {
		return nil, dt, pfx.Err(err)
	}

	var decompressed io.Reader
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		decompressed = gz
	case DataTypeZip:
		zr := zipstream.NewReader(br)
		// The stream is positioned at the first file in the archive only after
		// calling Next.
		if _, err := zr.Next(); err != nil {
			return nil, dt, pfx.Err(err)
		}
		decompressed = zr
	case DataTypeBZip2:
		decompressed = bzip2.NewReader(br)
	case DataTypeXZ:
		reader, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		decompressed = reader
	case DataTypeZlib:
		zl, err := zlib.NewReader(br)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		decompressed = zl
	default:
		decompressed = br
	}

	return &chainedReadCloser{Reader: decompressed, under: rc}, dt, nil
}

// chainedReadCloser reads from a (possibly decompressing) reader and closes
// the underlying source.
type chainedReadCloser struct {
	io.Reader
	under io.Closer
}

func (c *chainedReadCloser) Close() error {
	if closer, ok := c.Reader.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.under.Close()
			return err
		}
	}

	return c.under.Close()
}
