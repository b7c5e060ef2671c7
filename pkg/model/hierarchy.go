// Package model defines the read-only administrative hierarchy drillmap
// navigates: one country, its provinces, their departments and cities.
package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = errors.New("not found")

// Country is the singleton root of a dataset.
type Country struct {
	Name string `json:"name"`
	Info string `json:"info"`
	Flag string `json:"flag"`
}

// Province is a first-level division. ID must match a region id in the
// country map.
type Province struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Info        string       `json:"info,omitempty"`
	Flag        string       `json:"flag,omitempty"`
	Map         string       `json:"map,omitempty"`
	Departments []Department `json:"departments,omitempty"`
}

// Department is a second-level division. ID must match a region id in the
// province's detail map when one exists.
type Department struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Info   string `json:"info,omitempty"`
	Flag   string `json:"flag,omitempty"`
	Cities []City `json:"cities,omitempty"`
}

// City is a leaf entity. It is listed but never navigated into.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Info string `json:"info,omitempty"`
	Flag string `json:"flag,omitempty"`
}

// Hierarchy is the whole dataset. It is immutable after loading.
type Hierarchy struct {
	Country   Country    `json:"country"`
	Provinces []Province `json:"provinces"`
}

// Province returns the province with the given id.
func (h *Hierarchy) Province(id string) (*Province, error) {
	for i := range h.Provinces {
		if h.Provinces[i].ID == id {
			return &h.Provinces[i], nil
		}
	}
	return nil, fmt.Errorf("province %q: %w", id, ErrNotFound)
}

// HasMap reports whether the province declares its own detail map.
func (p *Province) HasMap() bool {
	return p.Map != ""
}

// Department returns the department with the given id.
func (p *Province) Department(id string) (*Department, error) {
	for i := range p.Departments {
		if p.Departments[i].ID == id {
			return &p.Departments[i], nil
		}
	}
	return nil, fmt.Errorf("department %q in province %q: %w", id, p.ID, ErrNotFound)
}

// DepartmentIDs returns department ids in declaration order.
func (p *Province) DepartmentIDs() []string {
	ids := make([]string, len(p.Departments))
	for i := range p.Departments {
		ids[i] = p.Departments[i].ID
	}
	return ids
}

// City returns the city with the given id.
func (d *Department) City(id string) (*City, error) {
	for i := range d.Cities {
		if d.Cities[i].ID == id {
			return &d.Cities[i], nil
		}
	}
	return nil, fmt.Errorf("city %q in department %q: %w", id, d.ID, ErrNotFound)
}

// Validate checks the structural invariants of a dataset: a named country,
// non-empty identifiers, and identifier uniqueness among siblings.
func (h *Hierarchy) Validate() error {
	if h.Country.Name == "" {
		return errors.New("country name is required")
	}

	provinces := make(map[string]bool, len(h.Provinces))
	for i, p := range h.Provinces {
		if p.ID == "" {
			return fmt.Errorf("province #%d: id is required", i)
		}
		if provinces[p.ID] {
			return fmt.Errorf("duplicate province id %q", p.ID)
		}
		provinces[p.ID] = true

		departments := make(map[string]bool, len(p.Departments))
		for j, d := range p.Departments {
			if d.ID == "" {
				return fmt.Errorf("province %q department #%d: id is required", p.ID, j)
			}
			if departments[d.ID] {
				return fmt.Errorf("province %q: duplicate department id %q", p.ID, d.ID)
			}
			departments[d.ID] = true

			cities := make(map[string]bool, len(d.Cities))
			for k, c := range d.Cities {
				if c.ID == "" {
					return fmt.Errorf("department %q city #%d: id is required", d.ID, k)
				}
				if cities[c.ID] {
					return fmt.Errorf("department %q: duplicate city id %q", d.ID, c.ID)
				}
				cities[c.ID] = true
			}
		}
	}
	return nil
}

// Counts returns the number of provinces, departments and cities.
func (h *Hierarchy) Counts() (provinces, departments, cities int) {
	provinces = len(h.Provinces)
	for _, p := range h.Provinces {
		departments += len(p.Departments)
		for _, d := range p.Departments {
			cities += len(d.Cities)
		}
	}
	return provinces, departments, cities
}
