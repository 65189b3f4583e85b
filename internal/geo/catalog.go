// Package geo owns districts (MMDAs) and the district -> region index used to
// resolve regional jurisdictions.
package geo

import (
	"sort"
	"strings"
	"sync"
)

// ghanaRegions is the starter index: every region of Ghana with a handful of
// its assemblies. Districts created at runtime are added on top.
var ghanaRegions = map[string][]string{
	"Greater Accra": {"Accra Metropolitan", "Tema Metropolitan", "Ga East Municipal", "Ga West Municipal", "Adenta Municipal", "Ledzokuku Municipal"},
	"Ashanti":       {"Kumasi Metropolitan", "Obuasi Municipal", "Ejisu Municipal", "Asokore Mampong Municipal"},
	"Western":       {"Sekondi-Takoradi Metropolitan", "Tarkwa-Nsuaem Municipal", "Ahanta West Municipal"},
	"Central":       {"Cape Coast Metropolitan", "Komenda-Edina-Eguafo-Abirem Municipal", "Awutu Senya East Municipal"},
	"Eastern":       {"New Juaben South Municipal", "Akuapem North Municipal", "Kwahu West Municipal"},
	"Volta":         {"Ho Municipal", "Keta Municipal", "Hohoe Municipal"},
	"Northern":      {"Tamale Metropolitan", "Yendi Municipal", "Savelugu Municipal"},
	"Upper East":    {"Bolgatanga Municipal", "Bawku Municipal"},
	"Upper West":    {"Wa Municipal", "Lawra Municipal"},
	"Bono":          {"Sunyani Municipal", "Berekum Municipal"},
	"Bono East":     {"Techiman Municipal", "Kintampo Municipal"},
	"Ahafo":         {"Asunafo North Municipal", "Tano North Municipal"},
	"Western North": {"Sefwi Wiawso Municipal", "Bibiani-Anhwiaso-Bekwai Municipal"},
	"Oti":           {"Krachi East Municipal", "Nkwanta South Municipal"},
	"Savannah":      {"West Gonja Municipal", "East Gonja Municipal"},
	"North East":    {"East Mamprusi Municipal", "West Mamprusi Municipal"},
}

// Catalog is a concurrency-safe district -> region index. Lookups ignore case
// and surrounding whitespace; results use the names as first registered.
type Catalog struct {
	mu        sync.RWMutex
	regionOf  map[string]string   // lower(district) -> region
	districts map[string][]string // lower(region) -> districts
	regions   map[string]string   // lower(region) -> region
}

// NewCatalog builds an index from region -> districts.
func NewCatalog(seed map[string][]string) *Catalog {
	c := &Catalog{
		regionOf:  make(map[string]string),
		districts: make(map[string][]string),
		regions:   make(map[string]string),
	}
	for region, districts := range seed {
		for _, d := range districts {
			c.Add(d, region)
		}
	}
	return c
}

// NewGhanaCatalog returns a catalog seeded with Ghana's regions.
func NewGhanaCatalog() *Catalog {
	return NewCatalog(ghanaRegions)
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Add registers district under region. Re-adding a district moves it.
func (c *Catalog) Add(district, region string) {
	district = strings.TrimSpace(district)
	region = strings.TrimSpace(region)
	if district == "" || region == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rk := key(region)
	if canonical, ok := c.regions[rk]; ok {
		region = canonical
	} else {
		c.regions[rk] = region
	}

	dk := key(district)
	if old, ok := c.regionOf[dk]; ok {
		if key(old) == rk {
			return
		}
		c.districts[key(old)] = remove(c.districts[key(old)], dk)
	}
	c.regionOf[dk] = region
	c.districts[rk] = append(c.districts[rk], district)
}

func remove(districts []string, dk string) []string {
	out := districts[:0]
	for _, d := range districts {
		if key(d) != dk {
			out = append(out, d)
		}
	}
	return out
}

// RegionOf returns the region a district belongs to.
func (c *Catalog) RegionOf(district string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.regionOf[key(district)]
	return r, ok
}

// DistrictsIn returns the districts of region, sorted. Unknown regions yield nil.
func (c *Catalog) DistrictsIn(region string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.districts[key(region)]
	if !ok {
		return nil
	}
	out := append([]string(nil), ds...)
	sort.Strings(out)
	return out
}

// IsRegion reports whether name is a known region.
func (c *Catalog) IsRegion(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regions[key(name)]
	return ok
}

// Regions lists every known region, sorted.
func (c *Catalog) Regions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
