package precinct

import (
	"gorm.io/gorm"
)

// Lister supplies the full normalized precinct collection to the engines.
// Handlers depend on this interface so tests can swap in a fixture set.
type Lister interface {
	ListRecords() ([]Record, error)
}

type Store struct {
	DB *gorm.DB
}

func (s Store) ListRecords() ([]Record, error) {
	var rows []Precinct
	if err := s.DB.Order("external_id").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}
	return records, nil
}
