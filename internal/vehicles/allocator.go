package vehicles

import (
	"math"
	"sort"

	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
)

// PoolVehicle is one available vehicle's remaining capacity in the working set.
type PoolVehicle struct {
	VehicleID       string
	AvailableVolume float64
	AvailableWeight float64
}

// Assignment is the share of the required load placed on one vehicle.
type Assignment struct {
	VehicleID      string
	AssignedVolume float64
	AssignedWeight float64
	LeftoverVolume float64
	LeftoverWeight float64
}

// Result reports the greedy capacity assignment over the pool.
type Result struct {
	Assignments      []Assignment
	FullySatisfied   bool
	RemainingVolume  float64
	RemainingWeight  float64
	VehiclesRequired int
}

// AllocateCapacity walks the pool largest-first (deterministic vehicle_id
// tie-break) and assigns each vehicle the largest share of the remaining load
// that fits both its volume and weight capacity. The load is treated as a
// divisible mixture, so a vehicle's share is capped by whichever dimension is
// more constraining. If either dimension cannot be fully placed the whole
// result reports fully_satisfied=false with a vehicles_required operator hint.
func AllocateCapacity(requiredVolume, requiredWeight float64, pool []PoolVehicle) (Result, error) {
	if requiredVolume < 0 || requiredWeight < 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "required capacity must be non-negative")
	}
	if requiredVolume == 0 && requiredWeight == 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "required capacity must be positive in at least one dimension")
	}

	working := make([]PoolVehicle, len(pool))
	copy(working, pool)
	sort.Slice(working, func(i, j int) bool {
		a, b := sortKey(working[i], requiredVolume), sortKey(working[j], requiredVolume)
		if a != b {
			return a > b
		}
		return working[i].VehicleID < working[j].VehicleID
	})

	// Weight per unit volume of the load, used to split a vehicle's share.
	density := 0.0
	if requiredVolume > 0 {
		density = requiredWeight / requiredVolume
	}

	result := Result{
		RemainingVolume: requiredVolume,
		RemainingWeight: requiredWeight,
	}
	for _, vehicle := range working {
		if result.RemainingVolume <= 0 && result.RemainingWeight <= 0 {
			break
		}

		var assignedVolume, assignedWeight float64
		switch {
		case requiredVolume == 0:
			assignedWeight = math.Min(result.RemainingWeight, vehicle.AvailableWeight)
		case density == 0:
			assignedVolume = math.Min(result.RemainingVolume, vehicle.AvailableVolume)
		default:
			byVolume := vehicle.AvailableVolume
			byWeight := vehicle.AvailableWeight / density
			assignedVolume = math.Min(result.RemainingVolume, math.Min(byVolume, byWeight))
			assignedWeight = assignedVolume * density
		}
		if assignedVolume <= 0 && assignedWeight <= 0 {
			continue
		}

		result.RemainingVolume -= assignedVolume
		result.RemainingWeight -= assignedWeight
		result.Assignments = append(result.Assignments, Assignment{
			VehicleID:      vehicle.VehicleID,
			AssignedVolume: assignedVolume,
			AssignedWeight: assignedWeight,
			LeftoverVolume: vehicle.AvailableVolume - assignedVolume,
			LeftoverWeight: vehicle.AvailableWeight - assignedWeight,
		})
	}

	result.FullySatisfied = result.RemainingVolume <= eps && result.RemainingWeight <= eps
	if result.FullySatisfied {
		result.RemainingVolume = 0
		result.RemainingWeight = 0
	} else {
		result.VehiclesRequired = vehiclesRequiredHint(requiredVolume, requiredWeight, pool)
	}
	return result, nil
}

const eps = 1e-9

// vehiclesRequiredHint estimates how many of the largest pool vehicles would be
// needed to carry the full load, per constrained dimension.
func vehiclesRequiredHint(requiredVolume, requiredWeight float64, pool []PoolVehicle) int {
	var maxVolume, maxWeight float64
	for _, vehicle := range pool {
		maxVolume = math.Max(maxVolume, vehicle.AvailableVolume)
		maxWeight = math.Max(maxWeight, vehicle.AvailableWeight)
	}

	hint := 0
	if requiredVolume > 0 && maxVolume > 0 {
		hint = int(math.Ceil(requiredVolume / maxVolume))
	}
	if requiredWeight > 0 && maxWeight > 0 {
		byWeight := int(math.Ceil(requiredWeight / maxWeight))
		if byWeight > hint {
			hint = byWeight
		}
	}
	return hint
}

func sortKey(vehicle PoolVehicle, requiredVolume float64) float64 {
	if requiredVolume > 0 {
		return vehicle.AvailableVolume
	}
	return vehicle.AvailableWeight
}
