package viewer

type Configuration struct {
	TierRaw         string  `json:"tier_raw" toml:"tier_raw" env:"LEDS_TIER_RAW"`
	TierDsp         string  `json:"tier_dsp" toml:"tier_dsp" env:"LEDS_TIER_DSP"`
	TierHit         string  `json:"tier_hit" toml:"tier_hit" env:"LEDS_TIER_HIT"`
	Experiment      string  `json:"experiment" toml:"experiment" env:"LEDS_EXPERIMENT"`
	DataType        string  `json:"datatype" toml:"datatype" env:"LEDS_DATATYPE"`
	Extension       string  `json:"extension" toml:"extension" env:"LEDS_EXTENSION"`
	MetadataDriver  string  `json:"metadata_driver" toml:"metadata_driver" env:"LEDS_METADATA_DRIVER"`
	MetadataPath    string  `json:"metadata_path" toml:"metadata_path" env:"LEDS_METADATA_PATH"`
	Host            string  `json:"host" toml:"host" env:"LEDS_DB_HOST"`
	User            string  `json:"user" toml:"user" env:"LEDS_DB_USER"`
	Passwd          string  `json:"pass" toml:"pass" env:"LEDS_DB_PASS"`
	DBName          string  `json:"dbname" toml:"dbname" env:"LEDS_DB_NAME"`
	BaselineChannel string  `json:"baseline_channel" toml:"baseline_channel" env:"LEDS_BASELINE_CHANNEL"`
	EnergyParameter string  `json:"energy_parameter" toml:"energy_parameter" env:"LEDS_ENERGY_PARAMETER"`
	EnergyThreshold float64 `json:"energy_threshold" toml:"energy_threshold" env:"LEDS_ENERGY_THRESHOLD"`
	PlayIntervalMs  int     `json:"play_interval_ms" toml:"play_interval_ms" env:"LEDS_PLAY_INTERVAL_MS"`
	Verbosity       int     `json:"verbosity" toml:"verbosity" env:"LEDS_VERBOSITY"`
	LogFile         string  `json:"log_file" toml:"log_file" env:"LEDS_LOG_FILE"`
}

// DefaultConfiguration returns the values used when a field is not set in
// the configuration file.
func DefaultConfiguration() Configuration {
	return Configuration{
		Experiment:      "l200",
		DataType:        "phy",
		Extension:       "lh5",
		MetadataDriver:  "sqlite",
		Host:            "localhost",
		User:            "legendreader",
		DBName:          "legend_metadata",
		BaselineChannel: "BSLN01",
		EnergyParameter: "cuspEmax_ctc_cal",
		EnergyThreshold: 25,
		PlayIntervalMs:  1,
		LogFile:         "eventviewer.log",
	}
}

func (c Configuration) TierPaths() TierPaths {
	return TierPaths{
		Raw:        c.TierRaw,
		Dsp:        c.TierDsp,
		Hit:        c.TierHit,
		Experiment: c.Experiment,
		DataType:   c.DataType,
		Extension:  c.Extension,
	}
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
