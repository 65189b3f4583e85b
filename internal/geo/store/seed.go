package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"revenuehub/internal/geo/models"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
)

// Catalog is the read side of the region index used for seeding.
type Catalog interface {
	Regions() []string
	DistrictsIn(region string) []string
}

type creator interface {
	Create(ctx context.Context, d *models.District) error
}

// SeedFromCatalog creates a district row for every catalog entry that does not
// exist yet and returns how many were created.
func SeedFromCatalog(ctx context.Context, store creator, catalog Catalog, now time.Time) (int, error) {
	created := 0
	used := make(map[string]int)
	for _, region := range catalog.Regions() {
		for _, name := range catalog.DistrictsIn(region) {
			code := AssemblyCode(name)
			used[code]++
			if n := used[code]; n > 1 {
				code += strconv.Itoa(n)
			}
			d, err := models.NewDistrict(id.DistrictID(uuid.New()), name, code, region, now)
			if err != nil {
				return created, err
			}
			if err := store.Create(ctx, d); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					continue
				}
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// AssemblyCode derives the conventional short code of an assembly from its
// name: the initials of each word followed by A, e.g. "Accra Metropolitan"
// becomes "AMA".
func AssemblyCode(name string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(name, func(r rune) bool { return r == ' ' || r == '-' }) {
		b.WriteString(strings.ToUpper(word[:1]))
	}
	b.WriteString("A")
	return b.String()
}
