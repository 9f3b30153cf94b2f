package reference

import "strings"

// Catalog is the immutable enum cache loaded once at bootstrap. Lookups are
// keyed by primary key and by case-insensitive name, which is how import
// spreadsheets reference sexes, nationalities and geography.
type Catalog struct {
	provincesByID   map[uint]Province
	provincesByName map[string]Province

	municipalitiesByID   map[uint]Municipality
	municipalitiesByName map[string]Municipality

	localitiesByID   map[uint]Locality
	localitiesByName map[string]Locality

	sexesByID   map[uint]Sex
	sexesByName map[string]Sex

	nationalitiesByID   map[uint]Nationality
	nationalitiesByName map[string]Nationality
}

func canon(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func NewCatalog(provinces []Province, municipalities []Municipality, localities []Locality, sexes []Sex, nationalities []Nationality) *Catalog {
	c := &Catalog{
		provincesByID:        make(map[uint]Province, len(provinces)),
		provincesByName:      make(map[string]Province, len(provinces)),
		municipalitiesByID:   make(map[uint]Municipality, len(municipalities)),
		municipalitiesByName: make(map[string]Municipality, len(municipalities)),
		localitiesByID:       make(map[uint]Locality, len(localities)),
		localitiesByName:     make(map[string]Locality, len(localities)),
		sexesByID:            make(map[uint]Sex, len(sexes)),
		sexesByName:          make(map[string]Sex, len(sexes)),
		nationalitiesByID:    make(map[uint]Nationality, len(nationalities)),
		nationalitiesByName:  make(map[string]Nationality, len(nationalities)),
	}
	for _, p := range provinces {
		c.provincesByID[p.ID] = p
		c.provincesByName[canon(p.Name)] = p
	}
	for _, m := range municipalities {
		c.municipalitiesByID[m.ID] = m
		c.municipalitiesByName[canon(m.Name)] = m
	}
	for _, l := range localities {
		c.localitiesByID[l.ID] = l
		c.localitiesByName[canon(l.Name)] = l
	}
	for _, s := range sexes {
		c.sexesByID[s.ID] = s
		c.sexesByName[canon(s.Name)] = s
	}
	for _, n := range nationalities {
		c.nationalitiesByID[n.ID] = n
		c.nationalitiesByName[canon(n.Name)] = n
	}
	return c
}

func (c *Catalog) ProvinceByID(id uint) (Province, bool) {
	p, ok := c.provincesByID[id]
	return p, ok
}

func (c *Catalog) ProvinceByName(name string) (Province, bool) {
	p, ok := c.provincesByName[canon(name)]
	return p, ok
}

func (c *Catalog) MunicipalityByID(id uint) (Municipality, bool) {
	m, ok := c.municipalitiesByID[id]
	return m, ok
}

func (c *Catalog) MunicipalityByName(name string) (Municipality, bool) {
	m, ok := c.municipalitiesByName[canon(name)]
	return m, ok
}

func (c *Catalog) LocalityByID(id uint) (Locality, bool) {
	l, ok := c.localitiesByID[id]
	return l, ok
}

func (c *Catalog) LocalityByName(name string) (Locality, bool) {
	l, ok := c.localitiesByName[canon(name)]
	return l, ok
}

func (c *Catalog) SexByID(id uint) (Sex, bool) {
	s, ok := c.sexesByID[id]
	return s, ok
}

func (c *Catalog) SexByName(name string) (Sex, bool) {
	s, ok := c.sexesByName[canon(name)]
	return s, ok
}

func (c *Catalog) NationalityByID(id uint) (Nationality, bool) {
	n, ok := c.nationalitiesByID[id]
	return n, ok
}

func (c *Catalog) NationalityByName(name string) (Nationality, bool) {
	n, ok := c.nationalitiesByName[canon(name)]
	return n, ok
}
