package database

import (
	"path/filepath"
	"strings"
	"testing"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver:        DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "keys.db"),
		MigrationsDir: filepath.Join("..", "..", "migrations"),
	}
}

func TestSQLiteMigrateAndConnect(t *testing.T) {
	cfg := sqliteConfig(t)
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// second run is a no-op
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM access_keys`); err != nil {
		t.Fatalf("query access_keys: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
	if got := db.Rebind(`SELECT 1 WHERE 1 = ?`); !strings.Contains(got, "?") {
		t.Fatalf("sqlite should keep ? bindvars, got %s", got)
	}
}

func TestConfigURLs(t *testing.T) {
	pg := Config{Driver: DriverPostgres, Host: "db", Port: "5432", User: "bot", Password: "pw", Name: "keys", SSLMode: "disable"}
	if got, want := pg.MigrateURL(), "postgres://bot:pw@db:5432/keys?sslmode=disable"; got != want {
		t.Fatalf("MigrateURL = %s, want %s", got, want)
	}
	if !strings.Contains(pg.DSN(), "dbname=keys") {
		t.Fatalf("DSN = %s", pg.DSN())
	}
	if got, want := pg.MigrationsPath(), filepath.Join("migrations", "postgres"); got != want {
		t.Fatalf("MigrationsPath = %s, want %s", got, want)
	}

	lite := Config{Driver: DriverSQLite, Path: "data/keys.db"}
	if got := lite.MigrateURL(); got != "sqlite://data/keys.db" {
		t.Fatalf("MigrateURL = %s", got)
	}
	if got := lite.DSN(); got != "data/keys.db" {
		t.Fatalf("DSN = %s", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Driver: "mongo"}, "invalid database.driver"},
		{Config{Driver: DriverSQLite}, "database.path"},
		{Config{Driver: DriverPostgres, Host: "db"}, "required for postgres"},
		{Config{Driver: DriverSQLite, Path: "x.db", MaxConnections: -1}, "max_connections"},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("Validate(%+v) = %v, want %q", tc.cfg, err, tc.want)
		}
	}
	if err := (Config{Driver: DriverSQLite, Path: "x.db"}).Validate(); err != nil {
		t.Fatalf("valid sqlite config rejected: %v", err)
	}
}

func TestAppliedBetween(t *testing.T) {
	files := []string{"000001_access_keys.up.sql", "000002_index.up.sql", "000003_more.up.sql", "junk.up.sql"}
	if got := appliedBetween(files, 1, 3); len(got) != 2 || got[0] != files[1] {
		t.Fatalf("appliedBetween(1, 3) = %v", got)
	}
	if got := appliedBetween(files, 3, 3); len(got) != 0 {
		t.Fatalf("appliedBetween(3, 3) = %v", got)
	}
	if got := appliedBetween(files, 0, 1); len(got) != 1 || got[0] != files[0] {
		t.Fatalf("appliedBetween(0, 1) = %v", got)
	}
}

func TestUpFiles(t *testing.T) {
	got := upFiles(filepath.Join("..", "..", "migrations", DriverSQLite))
	if len(got) != 1 || got[0] != "000001_access_keys.up.sql" {
		t.Fatalf("upFiles = %v", got)
	}
	if upFiles(filepath.Join(t.TempDir(), "missing")) != nil {
		t.Fatal("missing dir must yield nil")
	}
}
