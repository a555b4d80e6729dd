package topology

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// lbFactoryConf is the subset of MediaWiki's $wgLBFactoryConf used here.
type lbFactoryConf struct {
	SectionLoads orderedSections   `json:"sectionLoads"`
	SectionsByDB map[string]string `json:"sectionsByDB"`
}

// ParseLBFactoryConf builds a Topology from the JSON form of MediaWiki's
// $wgLBFactoryConf, as emitted by getConfiguration.php. The document may be
// either the configuration object itself, or an object wrapping it under a
// "wgLBFactoryConf" key. Host order within each section is preserved. Only
// sections named "s1", "s2", etc, and the DEFAULT section are kept. The
// supplied domain, if any, is appended to every host name.
func ParseLBFactoryConf(data []byte, domain string) (*Topology, error) {
	var wrapper struct {
		Conf json.RawMessage `json:"wgLBFactoryConf"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("Unable to decode database configuration: %w", err)
	}
	if len(wrapper.Conf) > 0 {
		data = wrapper.Conf
	}
	var conf lbFactoryConf
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("Unable to decode database configuration: %w", err)
	}
	if conf.SectionLoads == nil {
		return nil, errors.New("Database configuration is missing sectionLoads")
	}

	t := &Topology{
		WikiSections: conf.SectionsByDB,
	}
	if t.WikiSections == nil {
		t.WikiSections = make(map[string]string)
	}
	for _, s := range conf.SectionLoads {
		if s.Name != DefaultSection && !strings.HasPrefix(s.Name, "s") {
			continue
		}
		for n := range s.Hosts {
			s.Hosts[n] = Qualify(s.Hosts[n], domain)
		}
		t.Sections = append(t.Sections, s)
	}
	return t, nil
}

// orderedSections decodes the sectionLoads object while retaining both the
// order of sections and the order of hosts within each section. The host
// values (load weights) are discarded.
type orderedSections []Section

func (os *orderedSections) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	*os = orderedSections{}
	for dec.More() {
		name, err := objectKey(dec)
		if err != nil {
			return err
		}
		s := Section{Name: name}
		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
		for dec.More() {
			host, err := objectKey(dec)
			if err != nil {
				return err
			}
			var load json.RawMessage
			if err := dec.Decode(&load); err != nil {
				return err
			}
			s.Hosts = append(s.Hosts, host)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		*os = append(*os, s)
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	} else if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != delim {
		return fmt.Errorf("expected %s, found %v", delim, tok)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, found %v", tok)
	}
	return key, nil
}
