package room

import "errors"

var (
	ErrRoomFull               = errors.New("room is already at full capacity")
	ErrHasActiveTenants       = errors.New("room has active tenants")
	ErrCapacityBelowOccupancy = errors.New("capacity below occupancy")
)

// StatusAfterTenantAdded derives the room status after one tenant moves in,
// given the active tenant count before the move. Errors with ErrRoomFull
// when the room is already full.
func StatusAfterTenantAdded(rm Room, activeCountBefore int) (string, error) {
	if activeCountBefore >= rm.Capacity {
		return "", ErrRoomFull
	}
	if activeCountBefore+1 >= rm.Capacity {
		return StatusOccupied, nil
	}
	return StatusAvailable, nil
}

// StatusAfterTenantRemoved derives the room status after one tenant moves
// out, given the active tenant count before the move.
//
// With capacity >= 1 this resolves to Available after every removal; the
// formula is kept as-is from the admin flow it replaces.
func StatusAfterTenantRemoved(rm Room, activeCountBefore int) string {
	if activeCountBefore-1 >= rm.Capacity {
		return StatusOccupied
	}
	return StatusAvailable
}

// CheckDelete rejects room deletion while active tenants remain assigned.
func CheckDelete(activeCount int) error {
	if activeCount > 0 {
		return ErrHasActiveTenants
	}
	return nil
}

// CheckCapacity rejects reducing a room's capacity below its current
// occupancy.
func CheckCapacity(newCapacity, activeCount int) error {
	if newCapacity < activeCount {
		return ErrCapacityBelowOccupancy
	}
	return nil
}
