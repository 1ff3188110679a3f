package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CatalogEntry is one optional resource listed in the skin catalog. Path is
// both the resource's identity and its location below the skin base URL and
// the local cache directory.
type CatalogEntry struct {
	Path    string
	Version int
}

// ParseCatalog reads every <Skin> element of the catalog, at any depth. The
// resource location comes from the "url" attribute, or "path" when url is
// missing; "version" defaults to 0.
func ParseCatalog(r io.Reader) ([]CatalogEntry, error) {
	dec := xml.NewDecoder(r)
	var entries []CatalogEntry
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing skin catalog: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Skin" {
			continue
		}

		entry, err := catalogEntry(start)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func catalogEntry(start xml.StartElement) (CatalogEntry, error) {
	var entry CatalogEntry
	var path, url, version string
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "url":
			url = strings.TrimSpace(attr.Value)
		case "path":
			path = strings.TrimSpace(attr.Value)
		case "version":
			version = strings.TrimSpace(attr.Value)
		}
	}

	entry.Path = url
	if entry.Path == "" {
		entry.Path = path
	}
	if entry.Path == "" {
		return entry, fmt.Errorf("parsing skin catalog: <Skin> element without url")
	}

	if version != "" {
		v, err := strconv.Atoi(version)
		if err != nil {
			return entry, fmt.Errorf("parsing skin catalog: version of %s: %w", entry.Path, err)
		}
		entry.Version = v
	}
	return entry, nil
}
