package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

// PeopleKind says which shape a producer used for the people field.
type PeopleKind int

const (
	// PeopleMapping is {"Alex": {...metadata}}.
	PeopleMapping PeopleKind = iota
	// PeopleList is [{"name": "Alex", "id": "alex"}].
	PeopleList
)

// Person is one element of the list representation.
type Person struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// People is the set of people an entry mentions. The zero value is an
// empty mapping, which is also what an absent field decodes to.
type People struct {
	Kind    PeopleKind
	Mapping map[string]json.RawMessage
	List    []Person
}

// PeopleFromNames builds the list representation from bare names.
func PeopleFromNames(names ...string) People {
	list := make([]Person, 0, len(names))
	for _, name := range names {
		list = append(list, Person{Name: name})
	}
	return People{Kind: PeopleList, List: list}
}

// Names returns each distinct, non-blank name once. Mapping keys come back
// sorted; list names keep their submitted order.
func (p People) Names() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	switch p.Kind {
	case PeopleList:
		for _, person := range p.List {
			add(person.Name)
		}
	case PeopleMapping:
		keys := make([]string, 0, len(p.Mapping))
		for name := range p.Mapping {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			add(name)
		}
	}
	return names
}

// IsEmpty reports whether no person is mentioned.
func (p People) IsEmpty() bool {
	return len(p.Names()) == 0
}

func (p People) MarshalJSON() ([]byte, error) {
	if p.Kind == PeopleList {
		if p.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.List)
	}
	if p.Mapping == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Mapping)
}

func (p *People) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = People{}
		return nil
	}

	switch trimmed[0] {
	case '{':
		var mapping map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &mapping); err != nil {
			return utils.Invalid("people", "must be an object keyed by name or a list of people", err)
		}
		*p = People{Kind: PeopleMapping, Mapping: mapping}
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return utils.Invalid("people", "must be an object keyed by name or a list of people", err)
		}
		list := make([]Person, 0, len(items))
		for _, item := range items {
			person, err := decodePerson(item)
			if err != nil {
				return err
			}
			list = append(list, person)
		}
		*p = People{Kind: PeopleList, List: list}
		return nil
	default:
		return utils.Invalid("people", "must be an object keyed by name or a list of people", nil)
	}
}

// decodePerson accepts {"name": ..., "id": ...} or a bare string. Some
// producers send numeric ids, which are kept as their literal text.
func decodePerson(raw json.RawMessage) (Person, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return Person{}, utils.Invalid("people", "invalid person name", err)
		}
		if strings.TrimSpace(name) == "" {
			return Person{}, utils.Invalid("people", "each person needs a name", nil)
		}
		return Person{Name: name}, nil
	}

	var item struct {
		Name string          `json:"name"`
		ID   json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return Person{}, utils.Invalid("people", "each person must be an object with a name", err)
	}
	if strings.TrimSpace(item.Name) == "" {
		return Person{}, utils.Invalid("people", "each person needs a name", nil)
	}

	person := Person{Name: item.Name}
	id := bytes.TrimSpace(item.ID)
	switch {
	case len(id) == 0, bytes.Equal(id, []byte("null")):
	case id[0] == '"':
		if err := json.Unmarshal(id, &person.ID); err != nil {
			return Person{}, utils.Invalid("people", "invalid person id", err)
		}
	default:
		person.ID = string(id)
	}
	return person, nil
}
