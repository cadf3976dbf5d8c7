// Package osc emits a change-set as an OpenStreetMap XML changeset
// document (<osmChange version="0.6">).
package osc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/conveyal/osmix/internal/osm"
	"github.com/conveyal/osmix/internal/osm/changeset"
)

// Write emits cs as an <osmChange version="0.6"> document to w, with
// <create>, <modify>, and <delete> sections holding every queued entry
// grouped by change type. Deletion elements carry id only.
func Write(w io.Writer, cs *changeset.ChangeSet) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return fmt.Errorf("osc: writing prolog: %w", err)
	}
	if _, err := io.WriteString(w, `<osmChange version="0.6">`+"\n"); err != nil {
		return fmt.Errorf("osc: writing root open tag: %w", err)
	}

	sections := []struct {
		tag string
		ct  changeset.ChangeType
	}{
		{"create", changeset.ChangeCreate},
		{"modify", changeset.ChangeModify},
		{"delete", changeset.ChangeDelete},
	}

	for _, sec := range sections {
		if _, err := fmt.Fprintf(w, "<%s>\n", sec.tag); err != nil {
			return err
		}
		for _, c := range cs.AllEntries() {
			if c.Change != sec.ct {
				continue
			}
			if err := writeEntity(w, c, sec.ct); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "</%s>\n", sec.tag); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</osmChange>\n")
	return err
}

func writeEntity(w io.Writer, c changeset.Change, ct changeset.ChangeType) error {
	if ct == changeset.ChangeDelete {
		return writeDeleteStub(w, c)
	}

	switch c.Type {
	case changeset.EntityNode:
		if _, err := fmt.Fprintf(w, `<node id="%d" lon="%s" lat="%s">`+"\n", c.ID, formatCoord(c.Entity.Lon), formatCoord(c.Entity.Lat)); err != nil {
			return err
		}
		if err := writeTags(w, c.Entity.Tags); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</node>\n")
		return err

	case changeset.EntityWay:
		if _, err := fmt.Fprintf(w, `<way id="%d">`+"\n", c.ID); err != nil {
			return err
		}
		for _, ref := range c.Entity.Refs {
			if _, err := fmt.Fprintf(w, `<nd ref="%d"/>`+"\n", ref); err != nil {
				return err
			}
		}
		if err := writeTags(w, c.Entity.Tags); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</way>\n")
		return err

	case changeset.EntityRelation:
		if _, err := fmt.Fprintf(w, `<relation id="%d">`+"\n", c.ID); err != nil {
			return err
		}
		for _, m := range c.Entity.Members {
			attr, err := escapeAttr(m.Role)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, `<member type="%s" ref="%d" role="%s"/>`+"\n", memberTypeName(m.Type), m.Ref, attr); err != nil {
				return err
			}
		}
		if err := writeTags(w, c.Entity.Tags); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</relation>\n")
		return err
	}
	return nil
}

func writeDeleteStub(w io.Writer, c changeset.Change) error {
	var tag string
	switch c.Type {
	case changeset.EntityNode:
		tag = "node"
	case changeset.EntityWay:
		tag = "way"
	case changeset.EntityRelation:
		tag = "relation"
	}
	_, err := fmt.Fprintf(w, `<%s id="%d"/>`+"\n", tag, c.ID)
	return err
}

func writeTags(w io.Writer, tags map[string]string) error {
	for k, v := range tags {
		kAttr, err := escapeAttr(k)
		if err != nil {
			return err
		}
		vAttr, err := escapeAttr(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<tag k="%s" v="%s"/>`+"\n", kAttr, vAttr); err != nil {
			return err
		}
	}
	return nil
}

func memberTypeName(t osm.MemberType) string {
	switch t {
	case osm.MemberNode:
		return "node"
	case osm.MemberWay:
		return "way"
	case osm.MemberRelation:
		return "relation"
	}
	return "node"
}

func formatCoord(deg float64) string {
	return strconv.FormatFloat(deg, 'f', 7, 64)
}

// escapeAttr applies standard XML-attribute escaping via encoding/xml
// (spec.md 9's open question on OSC escaping policy, resolved to the
// standard escaper since no external policy was specified).
func escapeAttr(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", fmt.Errorf("osc: escaping attribute: %w", err)
	}
	return buf.String(), nil
}
