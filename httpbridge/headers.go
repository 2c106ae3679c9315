package httpbridge

import (
	"encoding/base64"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// binSuffix marks metadata keys whose values are binary and must transit
// HTTP headers base64-encoded.
const binSuffix = "-bin"

// trailerPrefix is prepended to trailer metadata keys when they are emitted
// as HTTP response headers, so that clients can recover headers and trailers
// independently.
const trailerPrefix = "X-Grpc-Trailer-"

// blockedHeaders are transport-level headers that are never translated into
// call metadata, nor emitted from outgoing metadata.
var blockedHeaders = map[string]struct{}{
	"host":              {},
	"content-length":    {},
	"content-type":      {},
	"connection":        {},
	"transfer-encoding": {},
}

// asMetadata converts inbound HTTP headers into call metadata. Keys are
// lower-cased (metadata keys are case-insensitive-as-lowercase), repeated
// header occurrences are preserved in order, block-listed headers are
// skipped, and "-bin" values are base64-decoded.
func asMetadata(header http.Header) (metadata.MD, error) {
	md := metadata.MD{}
	for k, vs := range header {
		k = strings.ToLower(k)
		if _, ok := blockedHeaders[k]; ok {
			continue
		}
		for _, v := range vs {
			if strings.HasSuffix(k, binSuffix) {
				vv, err := base64.URLEncoding.DecodeString(v)
				if err != nil {
					return nil, err
				}
				v = string(vv)
			}
			md[k] = append(md[k], v)
		}
	}
	return md, nil
}

// toHeaders copies outgoing call metadata into HTTP response headers, one
// header line per value. Block-listed keys are skipped and "-bin" values are
// base64-encoded. The prefix is used for trailer metadata.
func toHeaders(md metadata.MD, h http.Header, prefix string) {
	for k, vs := range md {
		lowerK := strings.ToLower(k)
		if _, ok := blockedHeaders[lowerK]; ok {
			continue
		}
		isBin := strings.HasSuffix(lowerK, binSuffix)
		for _, v := range vs {
			if isBin {
				v = base64.URLEncoding.EncodeToString([]byte(v))
			}
			h.Add(prefix+k, v)
		}
	}
}
