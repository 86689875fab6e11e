package memory

import (
	"encoding/json"
	"io"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// Fixtures is the JSON document accepted by Load.
type Fixtures struct {
	Locations     []model.Location    `json:"locations"`
	Services      []model.Service     `json:"services"`
	Sessions      []model.Session     `json:"sessions"`
	Sales         []model.Sale        `json:"sales"`
	CreditEntries []model.CreditEntry `json:"creditEntries"`
	Bookings      []model.Booking     `json:"bookings"`
}

// Load seeds the store from a fixtures document.
func (s *Store) Load(r io.Reader) error {
	var f Fixtures
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return err
	}
	for _, l := range f.Locations {
		s.PutLocation(l)
	}
	for _, svc := range f.Services {
		s.PutService(svc)
	}
	for _, sess := range f.Sessions {
		s.PutSession(sess)
	}
	for _, sale := range f.Sales {
		s.PutSale(sale)
	}
	for _, e := range f.CreditEntries {
		s.PutCreditEntry(e)
	}
	for _, b := range f.Bookings {
		s.PutBooking(b)
	}
	return nil
}
