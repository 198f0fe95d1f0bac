// Package consultant resolves the fixed consultant table assigned to visits.
package consultant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Consultant struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Directory is a read-only id -> name table. The zero value is empty.
type Directory struct {
	byID map[uint]string
}

func NewDirectory(list []Consultant) *Directory {
	d := &Directory{byID: make(map[uint]string, len(list))}
	for _, c := range list {
		d.byID[c.ID] = c.Name
	}
	return d
}

// Parse reads the "1:Jhonatan,2:Felipe" form used by the CONSULTANTS setting.
func Parse(raw string) (*Directory, error) {
	var list []Consultant
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, name, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("consultant %q: expected id:name", part)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("consultant %q: invalid id", part)
		}
		list = append(list, Consultant{ID: uint(id), Name: strings.TrimSpace(name)})
	}
	return NewDirectory(list), nil
}

func (d *Directory) Exists(id uint) bool {
	_, ok := d.byID[id]
	return ok
}

// Name returns the display name, or "Consultant {id}" for ids outside the table.
func (d *Directory) Name(id uint) string {
	if name, ok := d.byID[id]; ok {
		return name
	}
	return fmt.Sprintf("Consultant %d", id)
}

// NameOf is Name for optional ids; nil renders as "".
func (d *Directory) NameOf(id *uint) string {
	if id == nil {
		return ""
	}
	return d.Name(*id)
}

func (d *Directory) All() []Consultant {
	out := make([]Consultant, 0, len(d.byID))
	for id, name := range d.byID {
		out = append(out, Consultant{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
