package config

import "os"

// Config carries the process-level settings shared by the server and the
// worker.
type Config struct {
	Port        string
	DBDriver    string
	DBDSN       string
	CatalogPath string
	AutoMigrate bool
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	cfg := Config{
		Port:        os.Getenv("PORT"),
		DBDriver:    os.Getenv("TARIFFCOMPARE_DB_DRIVER"),
		DBDSN:       os.Getenv("TARIFFCOMPARE_DB_DSN"),
		CatalogPath: os.Getenv("TARIFFCOMPARE_CATALOG_PATH"),
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "memory"
	}
	if cfg.DBDriver != "memory" && cfg.DBDSN == "" {
		cfg.DBDSN = "tariffcompare.db"
	}
	switch os.Getenv("TARIFFCOMPARE_AUTO_MIGRATE") {
	case "1", "true", "yes":
		cfg.AutoMigrate = true
	}
	return cfg
}
