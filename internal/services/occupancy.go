package services

import "github.com/abrezinsky/munreg/internal/models"

// Occupancy derives who holds which seat from the current registrations.
// It is the only place seat occupancy is computed; nothing stores it.
func Occupancy(regs []models.Registration) map[models.Seat]string {
	held := make(map[models.Seat]string, len(regs))
	for _, reg := range regs {
		if seat, ok := reg.AssignedSeat(); ok {
			held[seat] = reg.ID
		}
	}
	return held
}

// seatAvailableTo reports whether delegateID may take seat given the
// occupancy map. A seat the delegate already holds counts as available.
func seatAvailableTo(held map[models.Seat]string, seat models.Seat, delegateID string) bool {
	holder, taken := held[seat]
	return !taken || holder == delegateID
}
