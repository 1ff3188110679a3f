package manifest

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/magiconair/properties"
)

// Unknown is the version assumed for a key a document does not mention.
const Unknown = "0"

// Versions maps an artifact key to an opaque version token. Tokens are only
// ever compared for equality.
type Versions map[string]string

// Get returns the token for key, or Unknown when absent.
func (v Versions) Get(key string) string {
	if s, ok := v[key]; ok {
		return s
	}
	return Unknown
}

// Equal reports whether both sides agree on key, treating absence as Unknown.
func (v Versions) Equal(other Versions, key string) bool {
	return v.Get(key) == other.Get(key)
}

// loader reads documents literally: version tokens never contain ${...}
// references, and one that looks like it must not be expanded.
var loader = properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}

// ParseProperties decodes a Java-style properties document. Later keys win.
func ParseProperties(r io.Reader) (Versions, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading properties: %w", err)
	}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing properties: %w", err)
	}
	return Versions(p.Map()), nil
}

// EncodeProperties writes v as a properties document with keys sorted, after
// a timestamp comment like the one java.util.Properties emits.
func EncodeProperties(w io.Writer, v Versions, now time.Time) error {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, v[k]); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("#\n#" + now.Format(time.UnixDate) + "\n")
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
