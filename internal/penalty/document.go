package penalty

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/louisbranch/respawn-penalty/internal/platform/errors"
)

// Document element and attribute names.
const (
	documentRoot       = "predeathData"
	characterElement   = "Character"
	identifierAttrName = "identifier"
)

// ErrNoState reports that no usable prior state exists: the document is
// missing, unreadable or not well-formed XML.
var ErrNoState = errors.New("no prior penalty state")

type documentXML struct {
	XMLName    xml.Name
	Characters []characterXML `xml:",any"`
}

type characterXML struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// DecodeDocument parses a penalty document.
//
// Any root element name is accepted. Child elements without an identifier
// attribute are skipped. A document that is not well-formed yields ErrNoState;
// a numeric field that fails to parse yields a CodeSaveDataCorrupt error and
// no table.
func DecodeDocument(r io.Reader) (Table, error) {
	var doc documentXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoState, err)
	}

	table := Table{}
	for _, element := range doc.Characters {
		id, record, ok, err := decodeCharacter(element)
		if err != nil {
			return nil, err
		}
		if !ok || len(record) == 0 {
			continue
		}
		table[id] = record
	}
	return table, nil
}

func decodeCharacter(element characterXML) (CharacterID, Record, bool, error) {
	var (
		id       CharacterID
		hasID    bool
		record   = Record{}
		rawLevel = map[SkillID]string{}
	)
	for _, attr := range element.Attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		if attr.Name.Local == identifierAttrName {
			value, err := strconv.Atoi(attr.Value)
			if err != nil {
				return 0, nil, false, corruptField(identifierAttrName, err)
			}
			id = CharacterID(value)
			hasID = true
			continue
		}
		rawLevel[NormalizeSkillID(attr.Name.Local)] = attr.Value
	}
	if !hasID {
		return 0, nil, false, nil
	}
	for skill, raw := range rawLevel {
		level, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, nil, false, corruptField(skill.String(), err)
		}
		if !FiniteLevel(level) {
			return 0, nil, false, corruptField(skill.String(), fmt.Errorf("level %q is not finite", raw))
		}
		record[skill] = level
	}
	return id, record, true, nil
}

// FiniteLevel reports whether level can be used as a recovery target.
func FiniteLevel(level float64) bool {
	return !math.IsNaN(level) && !math.IsInf(level, 0)
}

func corruptField(attribute string, err error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeSaveDataCorrupt,
		fmt.Sprintf("parse attribute %q", attribute),
		map[string]string{"attribute": attribute},
		err,
	)
}

// EncodeDocument writes table as an indented penalty document. Characters and
// skills are emitted in ascending order.
func EncodeDocument(w io.Writer, table Table) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: documentRoot}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, id := range table.Characters() {
		record := table[id]
		if len(record) == 0 {
			continue
		}
		start := xml.StartElement{
			Name: xml.Name{Local: characterElement},
			Attr: []xml.Attr{{Name: xml.Name{Local: identifierAttrName}, Value: strconv.Itoa(int(id))}},
		}
		for _, skill := range record.Skills() {
			if !storableSkill(skill) {
				return apperrors.WrapWithMetadata(
					apperrors.CodeSaveDataWrite,
					fmt.Sprintf("skill %q cannot be stored as an attribute", skill),
					map[string]string{"attribute": skill.String()},
					nil,
				)
			}
			start.Attr = append(start.Attr, xml.Attr{
				Name:  xml.Name{Local: skill.String()},
				Value: strconv.FormatFloat(record[skill], 'g', -1, 64),
			})
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ReadDocumentFile decodes the penalty document at path. Missing or unreadable
// files yield ErrNoState.
func ReadDocumentFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoState, err)
	}
	table, err := DecodeDocument(bytes.NewReader(data))
	if err != nil {
		var domainErr *apperrors.Error
		if errors.As(err, &domainErr) {
			if domainErr.Metadata == nil {
				domainErr.Metadata = map[string]string{}
			}
			domainErr.Metadata["path"] = path
		}
		return nil, err
	}
	return table, nil
}

// WriteDocumentFile replaces the file at path with the encoded table. The
// document is written to a temporary file in the same directory and renamed
// into place; missing directories are created.
func WriteDocumentFile(path string, table Table) error {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, table); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeFailure(path, "create save directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return writeFailure(path, "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return writeFailure(path, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return writeFailure(path, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return writeFailure(path, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return writeFailure(path, "replace save file", err)
	}
	return nil
}

func writeFailure(path, message string, err error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeSaveDataWrite, message, map[string]string{"path": path}, err)
}
