package incidentdb

import (
	"github.com/gowvp/vigil/internal/core/incident"
	"gorm.io/gorm"
)

var _ incident.Storer = DB{}

// DB Related business namespaces
type DB struct {
	db *gorm.DB
}

// NewDB instance object
func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// Incident Get business instance
func (d DB) Incident() incident.IncidentStorer {
	return Incident(d)
}

// Camera Get business instance
func (d DB) Camera() incident.CameraStorer {
	return Camera(d)
}

// AutoMigrate sync database
func (d DB) AutoMigrate(ok bool) DB {
	if !ok {
		return d
	}
	if err := d.db.AutoMigrate(
		new(incident.Camera),
		new(incident.Incident),
	); err != nil {
		panic(err)
	}
	return d
}

func session(d *gorm.DB, changeFns ...func(*gorm.DB) error) error {
	return d.Transaction(func(tx *gorm.DB) error {
		for _, fn := range changeFns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
