package mapvis

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type MappingEntry struct {
	Detector  string  `db:"detector"`
	PmChannel string  `db:"pm_channel"`
	Row       float64 `db:"row_pos"`
	Col       float64 `db:"col_pos"`
}

// DatabaseSource reads the detector_mapping table, one mapping per distinct
// detector value.
type DatabaseSource struct {
	DB *sqlx.DB
}

func (s *DatabaseSource) LoadMappings() (map[string]*Mapping, error) {
	query := "SELECT detector, pm_channel, row_pos, col_pos FROM detector_mapping ORDER BY detector, pm_channel"

	if configuration.Verbosity > 0 {
		logger.Info("Channel mapping read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := s.DB.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}
	defer rows.Close()

	mappings := make(map[string]*Mapping)
	for rows.Next() {
		result := MappingEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		mapping, ok := mappings[result.Detector]
		if !ok {
			mapping = NewMapping(result.Detector, "db:detector_mapping/"+result.Detector)
			mappings[result.Detector] = mapping
		}
		mapping.add(result.PmChannel, Position{Row: result.Row, Col: result.Col})
	}
	if err := rows.Err(); err != nil {
		errMessage := fmt.Errorf("error reading DB rows: %w", err)
		return nil, errMessage
	}
	return mappings, nil
}
