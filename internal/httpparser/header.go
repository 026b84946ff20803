package httpparser

import "net/textproto"

// Header is a case-insensitive header map. Insertion order is not
// preserved, matching spec §3 ("case-insensitive keys, insertion order
// irrelevant").
type Header map[string]string

func newHeader() Header {
	return make(Header, 8)
}

func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = value
}

func (h Header) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

func (h Header) Has(key string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}
