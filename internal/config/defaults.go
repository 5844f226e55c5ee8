package config

const (
	defaultConfigPath       = "~/.config/magicscraper/config.toml"
	defaultCatalogPath      = "~/.local/share/magicscraper/cards.json"
	defaultImagesDir        = "~/.local/share/magicscraper/card_images"
	defaultIndexDir         = "~/.local/share/magicscraper/index"
	defaultEditionDBPath    = "~/.local/share/magicscraper/editions.db"
	defaultLogDir           = "~/.local/share/magicscraper/logs"
	defaultSourceBaseURL    = "https://gatherer.wizards.com/Pages/Search/Default.aspx"
	defaultSourceQuery      = "name=+[]"
	defaultImageURL         = "https://gatherer.wizards.com/Handlers/Image.ashx"
	defaultUserAgent        = "magicscraper/dev"
	defaultMaxSweepAttempts = 10
	defaultIdentifyTop      = 5
	defaultMaxDistance      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	// fingerprintBits bounds identify.max_distance.
	fingerprintBits = 64
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CatalogPath:   defaultCatalogPath,
			ImagesDir:     defaultImagesDir,
			IndexDir:      defaultIndexDir,
			EditionDBPath: defaultEditionDBPath,
			LogDir:        defaultLogDir,
		},
		Source: Source{
			BaseURL:     defaultSourceBaseURL,
			SearchQuery: defaultSourceQuery,
			ImageURL:    defaultImageURL,
			UserAgent:   defaultUserAgent,
		},
		Images: Images{
			MaxSweepAttempts: defaultMaxSweepAttempts,
		},
		Identify: Identify{
			Top:         defaultIdentifyTop,
			MaxDistance: defaultMaxDistance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
