package gowrite

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io"
	"os"
)

// GeneratedHeader is written before every generated file.
const GeneratedHeader = "// Code generated by abitestgen; DO NOT EDIT.\n\n"

// ErrFormat reports generated source that gofmt rejects.
var ErrFormat = errors.New("gowrite: generated source does not format")

// WriteTo formats src and writes it to dst, preceded by header.
// Nothing is written when src does not format.
func WriteTo(dst io.Writer, header string, src []byte) error {
	out, err := Format(header, src)
	if err != nil {
		return err
	}
	_, err = dst.Write(out)
	return err
}

// Format prepends header to src and gofmts the result.
func Format(header string, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.Write(src)
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return out, nil
}

// WriteFile formats src in memory before outFile is opened, so a file is
// either written completely or not created at all. A failed write removes
// the partial file.
func WriteFile(outFile, header string, src []byte) (err error) {
	out, err := Format(header, src)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(outFile)
		}
	}()
	_, err = f.Write(out)
	return err
}
