// Package dataurl reads and writes RFC 2397 "data:" URLs, the string form
// images are exchanged in.
package dataurl

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	rfc2397 "github.com/vincent-petithory/dataurl"
)

const (
	scheme = "data:"

	// DefaultMediaType applies when a data URL omits its media type.
	DefaultMediaType = "text/plain;charset=US-ASCII"
)

// ErrMalformed is the cause of every Parse failure.
var ErrMalformed = errors.New("malformed data url")

// DataURL is a decoded data URL.
type DataURL struct {
	MediaType string // without parameters, lower case
	Params    map[string]string
	Base64    bool
	Data      []byte
}

// Parse decodes s. The scheme, media type and base64 marker match case
// insensitively; whitespace and missing padding in a base64 payload are
// tolerated.
func Parse(s string) (DataURL, error) {
	if !IsDataURL(s) {
		return DataURL{}, errors.Wrap(ErrMalformed, "missing data: scheme")
	}
	header, payload, ok := strings.Cut(s[len(scheme):], ",")
	if !ok {
		return DataURL{}, errors.Wrap(ErrMalformed, "missing comma")
	}

	// Only a pre-validated header goes through the library parser. Its lexer
	// runs on a goroutine that stays blocked when the parser bails out early.
	header, err := canonicalHeader(header)
	if err != nil {
		return DataURL{}, err
	}
	du, err := rfc2397.DecodeString(scheme + header + ",")
	if err != nil {
		return DataURL{}, errors.Wrapf(ErrMalformed, "header: %v", err)
	}

	d := DataURL{
		MediaType: strings.ToLower(du.ContentType()),
		Params:    make(map[string]string, len(du.Params)),
		Base64:    du.Encoding == rfc2397.EncodingBase64,
	}
	for k, v := range du.Params {
		d.Params[strings.ToLower(k)] = v
	}

	if d.Base64 {
		d.Data, err = decodeBase64(payload)
		if err != nil {
			return DataURL{}, errors.Wrapf(ErrMalformed, "base64: %v", err)
		}
		return d, nil
	}
	d.Data, err = rfc2397.Unescape(payload)
	if err != nil {
		return DataURL{}, errors.Wrapf(ErrMalformed, "percent-encoding: %v", err)
	}
	return d, nil
}

// canonicalHeader lower-cases the media type and the base64 marker, which
// the library only accepts in lower case. Parameter values keep their case
// but must unescape cleanly before the library sees them.
func canonicalHeader(h string) (string, error) {
	parts := strings.Split(h, ";")
	parts[0] = strings.ToLower(strings.TrimSpace(parts[0]))
	for i := 1; i < len(parts); i++ {
		p := strings.TrimSpace(parts[i])
		if strings.EqualFold(p, rfc2397.EncodingBase64) {
			p = rfc2397.EncodingBase64
		} else if _, v, ok := strings.Cut(p, "="); ok {
			var err error
			if strings.HasPrefix(v, `"`) {
				_, err = strconv.Unquote(v)
			} else {
				_, err = rfc2397.Unescape(v)
			}
			if err != nil {
				return "", errors.Wrapf(ErrMalformed, "parameter %q: %v", p, err)
			}
		}
		parts[i] = p
	}
	return strings.Join(parts, ";"), nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	if n := len(s) % 4; n != 0 && !strings.HasSuffix(s, "=") {
		s += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(s)
}

// Encode builds a base64 data URL. A media type without a subtype falls
// back to DefaultMediaType.
func Encode(mediaType string, data []byte) string {
	mt := rfc2397.MediaType{Params: map[string]string{}}
	var ok bool
	mt.Type, mt.Subtype, ok = strings.Cut(mediaType, "/")
	if !ok || mt.Type == "" || mt.Subtype == "" {
		mt.Type, mt.Subtype = "text", "plain"
		mt.Params["charset"] = "US-ASCII"
	}
	du := &rfc2397.DataURL{MediaType: mt, Encoding: rfc2397.EncodingBase64, Data: data}
	return du.String()
}

// FromBytes builds a data URL, sniffing the media type from content.
func FromBytes(data []byte) string {
	return Encode(Sniff(data), data)
}

// Sniff guesses the media type of raw image bytes.
func Sniff(data []byte) string {
	mt := http.DetectContentType(data)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// IsDataURL reports whether s starts with the data: scheme.
func IsDataURL(s string) bool {
	return len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme)
}
