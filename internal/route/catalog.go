package route

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

// Catalog maps each category to its facilities. It is immutable after NewCatalog.
type Catalog struct {
	byCat       map[model.Category][]model.FacilityRecord
	fingerprint uint64
}

// NewCatalog groups records by category, keeping their relative order. Records
// with an invalid category are dropped and counted.
func NewCatalog(records []model.FacilityRecord) (*Catalog, int) {
	c := &Catalog{byCat: make(map[model.Category][]model.FacilityRecord, len(model.Categories()))}
	dropped := 0
	for _, r := range records {
		if !r.Category.Valid() {
			dropped++
			continue
		}
		c.byCat[r.Category] = append(c.byCat[r.Category], r)
	}
	c.fingerprint = c.hash()
	return c, dropped
}

// For returns the facilities of a category. The slice is shared; do not modify it.
func (c *Catalog) For(cat model.Category) []model.FacilityRecord {
	if c == nil {
		return nil
	}
	return c.byCat[cat]
}

func (c *Catalog) Count(cat model.Category) int {
	return len(c.For(cat))
}

func (c *Catalog) Total() int {
	n := 0
	for _, cat := range model.Categories() {
		n += c.Count(cat)
	}
	return n
}

// Fingerprint identifies the records of every category, in order. Order counts
// because the first of two equidistant facilities wins.
func (c *Catalog) Fingerprint() uint64 {
	if c == nil {
		return 0
	}
	return c.fingerprint
}

func (c *Catalog) hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	for _, cat := range model.Categories() {
		recs := c.byCat[cat]
		putU(uint64(cat))
		putU(uint64(len(recs)))
		for _, r := range recs {
			putU(uint64(len(r.ID)))
			_, _ = d.WriteString(r.ID)
			putU(uint64(len(r.Label)))
			_, _ = d.WriteString(r.Label)
			putU(math.Float64bits(r.Location.X))
			putU(math.Float64bits(r.Location.Y))
		}
	}
	return d.Sum64()
}
