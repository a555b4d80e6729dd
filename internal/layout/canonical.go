package layout

import (
	"encoding/json"
	"slices"
)

// DefaultIgnoreParams lists table parameters which naturally vary between
// replicas, and are therefore excluded from canonical keys by default.
var DefaultIgnoreParams = []string{"AUTO_INCREMENT", "DEFAULT", "AVG_ROW_LENGTH"}

// Key is a byte-stable serialization of one or more tables. Two layouts are
// considered equivalent if and only if their keys are equal.
type Key string

type canonicalTable struct {
	Columns    map[string]string `json:"columns"`
	Keys       []string          `json:"keys"`
	Parameters ParameterMap      `json:"parameters"`
}

// CanonicalKey serializes t, omitting any parameters named in ignore. Column
// order and key order do not affect the result. The table name is not part
// of the key.
func CanonicalKey(t *Table, ignore []string) Key {
	return Key(canonicalJSON(t, ignore))
}

func canonicalJSON(t *Table, ignore []string) []byte {
	ct := canonicalTable{
		Columns:    make(map[string]string, len(t.Columns)),
		Keys:       slices.Clone(t.Keys),
		Parameters: t.ParameterMap().Without(ignore...),
	}
	for _, col := range t.Columns {
		ct.Columns[col.Name] = col.Properties
	}
	if ct.Keys == nil {
		ct.Keys = []string{}
	}
	slices.Sort(ct.Keys)

	// encoding/json sorts map keys, and nothing in canonicalTable can fail to
	// marshal
	b, err := json.Marshal(ct)
	if err != nil {
		panic(err)
	}
	return b
}

// DatabaseKey serializes every table in db, keyed by table name. Tables
// recorded as absent (nil) serialize as null, so a database missing a table
// is never equivalent to one that has it.
func DatabaseKey(db Database, ignore []string) Key {
	tables := make(map[string]json.RawMessage, len(db))
	for name, t := range db {
		if t == nil {
			tables[name] = json.RawMessage("null")
		} else {
			tables[name] = canonicalJSON(t, ignore)
		}
	}
	b, err := json.Marshal(tables)
	if err != nil {
		panic(err)
	}
	return Key(b)
}
