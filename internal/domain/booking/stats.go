package booking

// VehicleCount is the number of bookings referencing one vehicle.
type VehicleCount struct {
	VehicleID string
	Count     int64
}

// Stats summarizes a booking set.
type Stats struct {
	Total    int64
	ByStatus map[BookingStatus]int64
	Vehicles []VehicleCount
}

// Aggregate derives Stats from bookings. Total counts every booking regardless of status;
// Vehicles holds one entry per distinct non-empty vehicle id in first-seen order.
func Aggregate(bookings []*Booking) Stats {
	stats := Stats{
		ByStatus: make(map[BookingStatus]int64),
		Vehicles: []VehicleCount{},
	}
	index := make(map[string]int)
	for _, b := range bookings {
		stats.Total++
		stats.ByStatus[b.Status()]++

		vehicleID := b.VehicleID()
		if vehicleID == "" {
			continue
		}
		i, seen := index[vehicleID]
		if !seen {
			i = len(stats.Vehicles)
			index[vehicleID] = i
			stats.Vehicles = append(stats.Vehicles, VehicleCount{VehicleID: vehicleID})
		}
		stats.Vehicles[i].Count++
	}
	return stats
}
