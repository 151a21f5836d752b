package incidentdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func generateMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	return db, mock, err
}

func TestCameraGet(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	cameraDB := NewCamera(db)

	mock.ExpectQuery(`SELECT \* FROM "cameras" WHERE id=\$1 (.+) LIMIT \$2`).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).AddRow(3, "Vault", "ONLINE"))

	var out incident.Camera
	if err := cameraDB.Get(context.Background(), &out, orm.Where("id=?", 3)); err != nil {
		t.Fatal(err)
	}
	if out.Name != "Vault" || out.Status != incident.CameraOnline {
		t.Fatalf("got %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestIncidentFindPreloadsCamera(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	incidentDB := NewIncident(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "incidents" WHERE resolved = \$1`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "incidents" WHERE resolved = \$1 ORDER BY ts_start DESC LIMIT \$2`).
		WithArgs(false, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "camera_id", "type", "severity"}).
			AddRow(7, 2, "GUN_THREAT", "CRITICAL"))
	mock.ExpectQuery(`SELECT \* FROM "cameras" WHERE "cameras"."id" = \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Vault"))

	var out []*incident.Incident
	total, err := incidentDB.Find(context.Background(), &out, &web.PagerFilter{Page: 1, Size: 10},
		orm.Where("resolved = ?", false), orm.OrderBy("ts_start DESC"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(out) != 1 {
		t.Fatalf("total=%d len=%d", total, len(out))
	}
	if out[0].Camera == nil || out[0].Camera.Name != "Vault" {
		t.Fatalf("camera not preloaded: %+v", out[0].Camera)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestIncidentFindEmptySkipsSelect(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	incidentDB := NewIncident(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "incidents"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	var out []*incident.Incident
	total, err := incidentDB.Find(context.Background(), &out, &web.PagerFilter{Page: 1, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(out) != 0 {
		t.Fatalf("total=%d len=%d", total, len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestIncidentEdit(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	incidentDB := NewIncident(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "incidents" WHERE id=\$1 (.+) LIMIT \$2`).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "camera_id", "type", "resolved"}).
			AddRow(7, 2, "GUN_THREAT", false))
	mock.ExpectExec(`UPDATE "incidents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var out incident.Incident
	err = incidentDB.Edit(context.Background(), &out, func(b *incident.Incident) {
		b.Resolved = !b.Resolved
	}, orm.Where("id=?", 7))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Resolved {
		t.Fatal("expect resolved")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}
