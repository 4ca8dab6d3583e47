package audioscrobbler

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Param is a single request field. Batch fields carry an index suffix,
// e.g. "artist[3]".
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of request fields.
type Params []Param

// Set replaces the value of key, or appends it if absent.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the value of key, or "" if absent.
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Without returns a copy of p with the named keys removed.
func (p Params) Without(keys ...string) Params {
	out := make(Params, 0, len(p))
next:
	for _, kv := range p {
		for _, k := range keys {
			if kv.Key == k {
				continue next
			}
		}
		out = append(out, kv)
	}
	return out
}

// Canonical returns a sorted copy of p. Keys sort by their base name;
// indexed keys sharing a base name keep index order, so "artist[2]" sorts
// before "artist[10]".
func (p Params) Canonical() Params {
	out := make(Params, len(p))
	copy(out, p)
	sort.SliceStable(out, func(i, j int) bool {
		bi, ii := splitIndex(out[i].Key)
		bj, ij := splitIndex(out[j].Key)
		if bi != bj {
			return bi < bj
		}
		return ii < ij
	})
	return out
}

// Encode URL-encodes p in its current order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// splitIndex splits "artist[3]" into ("artist", 3). Keys without a numeric
// suffix return index -1.
func splitIndex(key string) (string, int) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, -1
	}
	idx, err := strconv.Atoi(key[open+1 : len(key)-1])
	if err != nil {
		return key, -1
	}
	return key[:open], idx
}

// Sign computes the api_sig for params.
//
// The api_sig and format fields are excluded. The remaining fields are put
// in canonical order, each written as key followed by value with no
// separators, the secret is appended, and the MD5 digest of the result is
// returned as lowercase hex.
func Sign(params Params, secret string) string {
	var b strings.Builder
	for _, kv := range params.Without("api_sig", "format").Canonical() {
		b.WriteString(kv.Key)
		b.WriteString(kv.Value)
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
