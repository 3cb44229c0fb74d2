package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// compressMinSize keeps short JSON acknowledgements uncompressed.
const compressMinSize = 1024

// Compress gzips responses for clients that accept it. Chat replies carry
// base64 audio and shrink considerably.
func Compress() func(next http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		// Only reachable with invalid static options.
		panic(err)
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}
}
