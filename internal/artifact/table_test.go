package artifact

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	table, err := Default()
	if err != nil {
		t.Fatalf("Default() failed: %v", err)
	}

	wantOrder := []string{
		"JavaSEJar",
		"CodeNameOneBuildClientJar",
		"CLDC11Jar",
		"CodenameOneJar",
		"CodenameOne_SRCzip",
		"designer",
		"guiBuilder",
	}
	if len(table.Artifacts) != len(wantOrder) {
		t.Fatalf("got %d artifacts, want %d", len(table.Artifacts), len(wantOrder))
	}
	for i, key := range wantOrder {
		if table.Artifacts[i].Key != key {
			t.Errorf("artifact[%d] = %q, want %q", i, table.Artifacts[i].Key, key)
		}
		if table.Artifacts[i].Kind != KindFile {
			t.Errorf("artifact %q kind = %q, want file", key, table.Artifacts[i].Kind)
		}
	}

	if got := len(table.ForProject()); got != 5 {
		t.Errorf("ForProject() returned %d artifacts, want 5", got)
	}

	for _, family := range []string{"win", "mac", "linux"} {
		b, ok := table.Bundle(family)
		if !ok {
			t.Errorf("no bundle for %s", family)
			continue
		}
		if !b.IsArchive() || b.ExtractTo == "" {
			t.Errorf("bundle %s should be an archive with extract_to", family)
		}
		if _, ok := table.UpdaterFile(family); !ok {
			t.Errorf("no updater file for %s", family)
		}
	}
	if table.Updater.Key != "Updater" {
		t.Errorf("updater key = %q", table.Updater.Key)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing artifacts", "updater: {key: Updater, files: {}}\n"},
		{"absolute cache path", `artifacts:
  - {key: A, file: a.jar, cache: /etc/a.jar}
updater: {key: Updater, files: {}}
`},
		{"parent escape", `artifacts:
  - {key: A, file: a.jar, cache: a.jar, project: ../../a.jar}
updater: {key: Updater, files: {}}
`},
		{"archive without extract_to", `artifacts:
  - {key: A, file: a.zip, cache: a.zip, kind: archive}
updater: {key: Updater, files: {}}
`},
		{"bad kind", `artifacts:
  - {key: A, file: a.zip, cache: a.zip, kind: tarball}
updater: {key: Updater, files: {}}
`},
		{"unknown family", `artifacts:
  - {key: A, file: a.jar, cache: a.jar}
bundles:
  amiga: {key: B, file: b.zip, cache: b.zip}
updater: {key: Updater, files: {}}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParse_DuplicateKey(t *testing.T) {
	data := `artifacts:
  - {key: A, file: a.jar, cache: a.jar}
  - {key: A, file: b.jar, cache: b.jar}
updater: {key: Updater, files: {}}
`
	_, err := Parse([]byte(data))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}

func TestValidate_BrokenYAML(t *testing.T) {
	if _, err := Validate([]byte("artifacts: [")); err == nil {
		t.Error("expected YAML parse error")
	}
}
