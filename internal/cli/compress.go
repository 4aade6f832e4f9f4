package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// xzMagic is the header of an xz stream.
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// decompressInput returns data unchanged unless it is an xz stream, in which
// case the decompressed bytes are returned.
func decompressInput(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, xzMagic) {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress xz: %w", err)
	}
	return out, nil
}

// writeXZ writes data to w as an xz stream.
func writeXZ(w io.Writer, data []byte) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := xw.Write(data); err != nil {
		xw.Close()
		return err
	}
	return xw.Close()
}
