// Package region holds the static region registry claims are scoped to.
// Regions are seeded by migration; the service only ever reads them.
package region

import (
	"context"

	id "charter/pkg/domain"
)

// Region is one administrative region of the membership network.
type Region struct {
	ID   id.RegionID
	Name string
}

// Store provides read access to regions.
type Store interface {
	FindByID(ctx context.Context, regionID id.RegionID) (*Region, error)
	List(ctx context.Context) ([]*Region, error)
}
