package cli

import "github.com/roach88/crossbind/internal/config"

func defaultConfigWithCatalog(path string) *config.Config {
	cfg := config.Default()
	cfg.Catalog = path
	return cfg
}
