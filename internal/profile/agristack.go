package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asteroid-belt/kisan/internal/log"
	"github.com/asteroid-belt/kisan/internal/models"
)

var ErrEmptyAgriStackID = errors.New("enter a valid AgriStack id")

// FarmRecord is the land record returned for an AgriStack id.
type FarmRecord struct {
	LandSize    string `json:"land_size"`
	Location    string `json:"location"`
	SoilType    string `json:"soil_type"`
	PrimaryCrop string `json:"primary_crop"`
	Status      string `json:"status,omitempty"`
}

// Registry is the built-in AgriStack registry.
var Registry = map[string]FarmRecord{
	"AGRI-001": {LandSize: "2.5 Hectares", Location: "Punjab", SoilType: "Alluvial", PrimaryCrop: "Rice", Status: "Active"},
	"AGRI-002": {LandSize: "5.0 Acres", Location: "Kerala", SoilType: "Laterite", PrimaryCrop: "Banana", Status: "Active"},
	"AGRI-003": {LandSize: "1.2 Hectares", Location: "Karnataka", SoilType: "Red Loam", PrimaryCrop: "Coffee", Status: "Active"},
}

// unregistered is what an id outside the registry links to.
var unregistered = FarmRecord{LandSize: "Unknown", Location: "Registered Farm", SoilType: "Standard", PrimaryCrop: "Mixed"}

// Link is the outcome of linking an AgriStack id.
type Link struct {
	ID     string     `json:"agristack_id"`
	Record FarmRecord `json:"record"`
	// Limited is set when the id is not in the registry.
	Limited bool `json:"limited,omitempty"`
}

// LookupAgriStack resolves id in registry. Ids are trimmed and upper-cased.
func LookupAgriStack(registry map[string]FarmRecord, id string) (Link, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return Link{}, ErrEmptyAgriStackID
	}
	if rec, ok := registry[id]; ok {
		return Link{ID: id, Record: rec}, nil
	}
	return Link{ID: id, Record: unregistered, Limited: true}, nil
}

// LinkAgriStack looks up id, stores it locally and mirrors it to the
// profile when signed in.
func (s *Service) LinkAgriStack(ctx context.Context, id string) (Link, error) {
	reg := s.Registry
	if reg == nil {
		reg = Registry
	}
	link, err := LookupAgriStack(reg, id)
	if err != nil {
		return Link{}, err
	}
	if err := s.KV.SetKV(ctx, models.KVAgriStackID, link.ID); err != nil {
		return Link{}, fmt.Errorf("save agristack id: %w", err)
	}

	uid := s.Client.UserID()
	if uid == "" || s.Mirror == nil {
		return link, nil
	}
	err = s.Mirror.Enqueue(ctx, models.MirrorItem{
		TargetTable:  "profiles",
		TargetColumn: "agristack_id",
		Value:        link.ID,
		MatchColumn:  "id",
		MatchValue:   uid,
	})
	if err != nil {
		log.Warnf("queue agristack mirror: %v", err)
	}
	return link, nil
}
