package mapvis

type Configuration struct {
	Verbosity    int      `json:"verbosity" yaml:"verbosity"`
	FileIn       string   `json:"file_in" yaml:"file_in"`
	FileOut      string   `json:"file_out" yaml:"file_out"`
	Detector     string   `json:"detector" yaml:"detector"`
	MappingsDir  string   `json:"mappings_dir" yaml:"mappings_dir"`
	Date         string   `json:"date" yaml:"date"`
	FactorType   string   `json:"factor_type" yaml:"factor_type"`
	Colormap     string   `json:"colormap" yaml:"colormap"`
	CustomColors []string `json:"custom_colors" yaml:"custom_colors"`
	VMin         float64  `json:"vmin" yaml:"vmin"`
	VMax         float64  `json:"vmax" yaml:"vmax"`
	DPI          int      `json:"dpi" yaml:"dpi"`
	GIF          bool     `json:"gif" yaml:"gif"`
	GIFDuration  int      `json:"gif_duration" yaml:"gif_duration"`
	GIFLoop      int      `json:"gif_loop" yaml:"gif_loop"`
	UseDB        bool     `json:"use_db" yaml:"use_db"`
	Host         string   `json:"host" yaml:"host"`
	User         string   `json:"user" yaml:"user"`
	Passwd       string   `json:"pass" yaml:"pass"`
	DBName       string   `json:"dbname" yaml:"dbname"`
}

// DefaultConfiguration returns the values used when neither a configuration
// file nor a flag sets a field.
func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:   0,
		FactorType:  NormalizedGaussAgeingFactor,
		Colormap:    "RdYlGn",
		VMin:        0.4,
		VMax:        1.2,
		DPI:         300,
		GIF:         false,
		GIFDuration: 500,
		GIFLoop:     0,
		UseDB:       false,
		Host:        "localhost",
		User:        "fitreader",
		Passwd:      "readonly",
		DBName:      "FIT",
	}
}

// Options extracts the rendering options held by the configuration.
func (c Configuration) Options() Options {
	return Options{
		FactorType:   c.FactorType,
		Date:         c.Date,
		Colormap:     c.Colormap,
		CustomColors: c.CustomColors,
		VMin:         c.VMin,
		VMax:         c.VMax,
	}
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
