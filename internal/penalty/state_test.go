package penalty

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestSaveStateLoadStateRoundTrip(t *testing.T) {
	source := newTracker(t)
	source.RecordDeath(newCharacter(101, map[string]float64{"helm": 40, "weapons": 12.345678}))
	source.RecordDeath(newCharacter(-7, map[string]float64{"medical": 0.1}))

	path := filepath.Join(t.TempDir(), "nested", "campaign.xml")
	if err := source.SaveState(path); err != nil {
		t.Fatalf("save state: %v", err)
	}

	restored := newTracker(t)
	if err := restored.LoadState(path); err != nil {
		t.Fatalf("load state: %v", err)
	}

	want := source.Snapshot()
	got := restored.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("characters = %v, want %v", got.Characters(), want.Characters())
	}
	for id, record := range want {
		for skill, level := range record {
			if got[id][skill] != level {
				t.Fatalf("character %d skill %s = %v, want %v", id, skill, got[id][skill], level)
			}
		}
		if len(got[id]) != len(record) {
			t.Fatalf("character %d skills = %v, want %v", id, got[id].Skills(), record.Skills())
		}
	}
}

func TestSaveStateOverwritesExistingFile(t *testing.T) {
	path := writeFixture(t, `<predeathData><Character identifier="1" helm="99"/></predeathData>`)

	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(2, map[string]float64{"weapons": 5}))
	if err := tracker.SaveState(path); err != nil {
		t.Fatalf("save state: %v", err)
	}

	table, err := ReadDocumentFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if _, ok := table[1]; ok {
		t.Fatal("expected previous on-disk content to be replaced")
	}
	if table[2]["weapons"] != 5 {
		t.Fatalf("weapons = %v, want 5", table[2]["weapons"])
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestLoadStateMissingFileIsNoop(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"helm": 40}))

	if err := tracker.LoadState(filepath.Join(t.TempDir(), "absent.xml")); err != nil {
		t.Fatalf("load state: %v", err)
	}
	if tracker.Len() != 1 {
		t.Fatalf("len = %d, want 1", tracker.Len())
	}
}

func TestLoadStateMalformedDocumentIsNoop(t *testing.T) {
	for name, content := range map[string]string{
		"empty":     "",
		"truncated": `<predeathData><Character identifier="1" helm="4`,
		"not xml":   "just some text",
	} {
		t.Run(name, func(t *testing.T) {
			tracker := newTracker(t)
			if err := tracker.LoadState(writeFixture(t, content)); err != nil {
				t.Fatalf("load state: %v", err)
			}
			if tracker.Len() != 0 {
				t.Fatalf("len = %d, want 0", tracker.Len())
			}
		})
	}
}

func TestLoadStateCorruptNumberFailsWholeLoad(t *testing.T) {
	tests := map[string]string{
		"skill level": `<predeathData>
  <Character identifier="1" helm="40"/>
  <Character identifier="2" helm="forty"/>
</predeathData>`,
		"identifier": `<predeathData>
  <Character identifier="1" helm="40"/>
  <Character identifier="two" helm="4"/>
</predeathData>`,
		"nan level": `<predeathData>
  <Character identifier="1" helm="40"/>
  <Character identifier="2" helm="NaN"/>
</predeathData>`,
		"infinite level": `<predeathData>
  <Character identifier="1" helm="Inf"/>
</predeathData>`,
		"signed infinity": `<predeathData>
  <Character identifier="1" weapons="-Infinity"/>
</predeathData>`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFixture(t, content)
			tracker := newTracker(t)

			err := tracker.LoadState(path)
			if !errors.Is(err, apperrors.New(apperrors.CodeSaveDataCorrupt, "")) {
				t.Fatalf("err = %v, want save data corrupt", err)
			}
			var domainErr *apperrors.Error
			if !errors.As(err, &domainErr) || domainErr.Metadata["path"] != path {
				t.Fatalf("err metadata = %+v, want path %q", domainErr, path)
			}
			if tracker.Len() != 0 {
				t.Fatalf("len = %d, want nothing merged", tracker.Len())
			}
		})
	}
}

func TestLoadStateReplacesOnlyListedCharacters(t *testing.T) {
	tracker := newTracker(t)
	tracker.RecordDeath(newCharacter(1, map[string]float64{"helm": 40}))
	tracker.RecordDeath(newCharacter(2, map[string]float64{"helm": 10}))

	path := writeFixture(t, `<predeathData><Character identifier="1" weapons="33.5"/></predeathData>`)
	if err := tracker.LoadState(path); err != nil {
		t.Fatalf("load state: %v", err)
	}

	if _, ok := tracker.Target(1, "helm"); ok {
		t.Fatal("expected loaded record to replace character 1")
	}
	if got := mustTarget(t, tracker, 1, "weapons"); got != 33.5 {
		t.Fatalf("weapons = %v, want 33.5", got)
	}
	if got := mustTarget(t, tracker, 2, "helm"); got != 10 {
		t.Fatalf("character 2 helm = %v, want 10", got)
	}
}

func TestDecodeDocumentSkipsElementsWithoutIdentifier(t *testing.T) {
	table, err := DecodeDocument(strings.NewReader(`<anyRoot>
  <Character helm="40"/>
  <Other identifier="5" Helm="12"/>
  <Character identifier="6"/>
</anyRoot>`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("characters = %v, want [5]", table.Characters())
	}
	if table[5]["helm"] != 12 {
		t.Fatalf("helm = %v, want 12", table[5]["helm"])
	}
}

func TestDecodeDocumentMalformedReturnsErrNoState(t *testing.T) {
	_, err := DecodeDocument(strings.NewReader("<predeathData>"))
	if !errors.Is(err, ErrNoState) {
		t.Fatalf("err = %v, want ErrNoState", err)
	}
}

func TestEncodeDocumentLayout(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeDocument(&buf, Table{
		2: {"weapons": 40, "helm": 12.5},
		1: {"medical": 3},
		3: {},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := `<?xml version="1.0" encoding="UTF-8"?>
<predeathData>
  <Character identifier="1" medical="3"></Character>
  <Character identifier="2" helm="12.5" weapons="40"></Character>
</predeathData>
`
	if buf.String() != want {
		t.Fatalf("document =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestEncodeDocumentRejectsUnstorableSkill(t *testing.T) {
	for _, skill := range []SkillID{"two words", "identifier", "9lives", "ns:helm"} {
		t.Run(string(skill), func(t *testing.T) {
			err := EncodeDocument(&bytes.Buffer{}, Table{1: {skill: 1}})
			if !errors.Is(err, apperrors.New(apperrors.CodeSaveDataWrite, "")) {
				t.Fatalf("err = %v, want save data write error", err)
			}
		})
	}
}

func TestSaveStateLeavesOldFileOnEncodeFailure(t *testing.T) {
	path := writeFixture(t, `<predeathData><Character identifier="1" helm="99"/></predeathData>`)

	tracker := newTracker(t)
	tracker.Merge(Table{1: {"bad name": 1}})
	if err := tracker.SaveState(path); err == nil {
		t.Fatal("expected save error")
	}

	table, err := ReadDocumentFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if table[1]["helm"] != 99 {
		t.Fatalf("helm = %v, want original 99", table[1]["helm"])
	}
}
