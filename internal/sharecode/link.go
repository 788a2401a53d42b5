package sharecode

import (
	"fmt"
	"net/url"
	"strings"

	lzstring "github.com/daku10/go-lz-string"

	"github.com/zombor/receiptwiser/internal/bill"
)

// EncodeLink returns the share code for r.
func EncodeLink(r bill.Receipt) (string, error) {
	b, err := Marshal(r)
	if err != nil {
		return "", err
	}
	code, err := lzstring.CompressToEncodedURIComponent(string(b))
	if err != nil {
		return "", fmt.Errorf("compressing compact receipt: %w", err)
	}
	return code, nil
}

// DecodeLink reverses EncodeLink. The code may still carry URL escaping from
// the path segment it was taken from.
func DecodeLink(code string) (bill.Receipt, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return bill.Receipt{}, fmt.Errorf("%w: empty share code", ErrInvalidReceiptData)
	}
	unescaped, err := url.PathUnescape(code)
	if err != nil {
		return bill.Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceiptData, err)
	}
	s, err := decompress(unescaped)
	if err != nil {
		return bill.Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceiptData, err)
	}
	if s == "" {
		return bill.Receipt{}, fmt.Errorf("%w: share code decompressed to nothing", ErrInvalidReceiptData)
	}
	return Unmarshal([]byte(s))
}

func decompress(code string) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decompressing share code: %v", r)
		}
	}()
	return lzstring.DecompressFromEncodedURIComponent(code)
}

// ShareURL joins a public base URL and a share code.
func ShareURL(base, code string) string {
	return strings.TrimRight(base, "/") + "/share/" + code
}
