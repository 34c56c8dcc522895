package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/atmoscast/atmoscast/internal/api"
	"github.com/atmoscast/atmoscast/internal/features"
	"github.com/atmoscast/atmoscast/internal/forecast"
	"github.com/atmoscast/atmoscast/internal/geo"
	"github.com/atmoscast/atmoscast/internal/grid"
	"github.com/atmoscast/atmoscast/internal/loader"
	"github.com/atmoscast/atmoscast/internal/meteo"
	"github.com/atmoscast/atmoscast/internal/physics"
	"github.com/atmoscast/atmoscast/internal/render"
	"github.com/atmoscast/atmoscast/internal/store"
	"github.com/atmoscast/atmoscast/internal/validate"
)

type Globals struct {
	DB       string `help:"Path to the SQLite database." default:"data/atmoscast.db" env:"ATMOSCAST_DB"`
	Timezone string `help:"Timezone for the diurnal cycle." default:"America/Los_Angeles" env:"ATMOSCAST_TZ"`
}

type CLI struct {
	Globals

	Serve        ServeCmd        `cmd:"" help:"Run the HTTP API server."`
	Forecast     ForecastCmd     `cmd:"" help:"Run a multi-horizon forecast from a request file."`
	Calibrate    CalibrateCmd    `cmd:"" help:"Grid-search factor candidates against labeled samples."`
	Features     FeaturesCmd     `cmd:"" help:"Extract the ML feature vector for a point on a grid."`
	Heatmap      HeatmapCmd      `cmd:"" help:"Render a grid to a PNG heatmap."`
	ImportGround ImportGroundCmd `cmd:"" name:"import-ground" help:"Import ground-truth measurements from an EPA CSV export."`
	FetchWeather FetchWeatherCmd `cmd:"" name:"fetch-weather" help:"Fetch hourly weather for a point from Open-Meteo."`
	FetchFires   FetchFiresCmd   `cmd:"" name:"fetch-fires" help:"Fetch active fire detections from NASA FIRMS."`
}

func (g *Globals) openStore() (*store.Store, func(), error) {
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}

func (g *Globals) location() *time.Location {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", g.Timezone, err)
		return time.UTC
	}
	return loc
}

func (g *Globals) activeFactors() (physics.Factors, func(), error) {
	st, closeDB, err := g.openStore()
	if err != nil {
		return physics.Factors{}, nil, err
	}
	factors, err := st.ActiveFactors()
	if err != nil {
		closeDB()
		return physics.Factors{}, nil, err
	}
	return factors, closeDB, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ServeCmd struct {
	Port string `help:"HTTP server port." default:"8080" env:"ATMOSCAST_PORT"`
}

func (c *ServeCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(st, c.Port, g.location())
	log.Printf("listening on :%s", c.Port)
	return srv.Run(ctx)
}

type ForecastCmd struct {
	Input string `help:"Request JSON file." arg:"" type:"existingfile"`
}

type forecastFile struct {
	HistoricalGrids   []*grid.Grid       `json:"historical_grids"`
	HistoricalWeather []meteo.Conditions `json:"historical_weather"`
	FireHistory       [][]physics.Fire   `json:"fire_history"`
	ActiveFires       []physics.Fire     `json:"active_fires"`
	WeatherForecasts  []meteo.Conditions `json:"weather_forecasts"`
	Horizons          []int              `json:"forecast_horizons"`
}

func (c *ForecastCmd) Run(g *Globals) error {
	var req forecastFile
	if err := readJSONFile(c.Input, &req); err != nil {
		return err
	}

	factors, closeDB, err := g.activeFactors()
	if err != nil {
		return err
	}
	defer closeDB()

	o := forecast.NewOrchestrator(factors, g.location())
	res, err := o.Forecast(forecast.Request{
		HistoricalGrids:   req.HistoricalGrids,
		HistoricalWeather: req.HistoricalWeather,
		FireHistory:       req.FireHistory,
		ActiveFires:       req.ActiveFires,
		WeatherForecasts:  req.WeatherForecasts,
		Horizons:          req.Horizons,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

type CalibrateCmd struct {
	Space   string `help:"Search-space JSON file (factor name to candidate list)." arg:"" type:"existingfile"`
	Samples string `help:"Labeled-sample JSON file, chronologically sorted." arg:"" type:"existingfile"`
	Workers int    `help:"Parallel evaluation workers (0 = NumCPU)." default:"0"`
}

func (c *CalibrateCmd) Run(g *Globals) error {
	var space validate.SearchSpace
	if err := readJSONFile(c.Space, &space); err != nil {
		return err
	}
	var samples []validate.LabeledSample
	if err := readJSONFile(c.Samples, &samples); err != nil {
		return err
	}

	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	base, err := st.ActiveFactors()
	if err != nil {
		return err
	}

	progress := func(done, total int) {
		if done%10 == 0 || done == total {
			log.Printf("calibrate: %d/%d combinations", done, total)
		}
	}
	result, err := validate.Calibrate(base, space, samples, c.Workers, progress)
	if err != nil {
		return err
	}

	if _, err := st.SaveCalibration(result, time.Now().UTC()); err != nil {
		return err
	}
	return printJSON(result)
}

type FeaturesCmd struct {
	Grid       string  `help:"Grid JSON file." arg:"" type:"existingfile"`
	Latitude   float64 `help:"Query latitude." required:""`
	Longitude  float64 `help:"Query longitude." required:""`
	Weather    string  `help:"Weather conditions JSON file." type:"existingfile" xor:"weather" required:""`
	Sites      string  `help:"Weather site series JSON file, interpolated at the query point." type:"existingfile" xor:"weather" required:""`
	HoursAhead int     `help:"Forecast horizon the sample describes." default:"0"`
	CSV        bool    `help:"Emit a two-line CSV instead of JSON."`
}

func (c *FeaturesCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.Grid)
	if err != nil {
		return err
	}
	gr, err := loader.ParseGrid(data)
	if err != nil {
		return err
	}
	at, err := geo.NewPoint(c.Latitude, c.Longitude)
	if err != nil {
		return err
	}

	var wx meteo.Conditions
	if c.Sites != "" {
		var sites []meteo.Series
		if err := readJSONFile(c.Sites, &sites); err != nil {
			return err
		}
		wx = meteo.NewInterpolator(sites).At(at, gr.Timestamp, meteo.DefaultNeighbors)
	} else if err := readJSONFile(c.Weather, &wx); err != nil {
		return err
	}

	factors, closeDB, err := g.activeFactors()
	if err != nil {
		return err
	}
	defer closeDB()

	v, err := features.Extract(gr, at, wx, forecast.Trends{}, c.HoursAhead, factors, g.location())
	if err != nil {
		return err
	}

	if c.CSV {
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(features.Names()); err != nil {
			return err
		}
		if err := w.Write(v.CSVRecord()); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	}
	return printJSON(map[string]any{
		"names":  features.Names(),
		"values": v.Values(),
	})
}

type HeatmapCmd struct {
	Grid   string `help:"Grid JSON file." arg:"" type:"existingfile"`
	Out    string `help:"Output PNG path." default:"heatmap.png"`
	Width  int    `help:"Raster width in pixels." default:"800"`
	Height int    `help:"Raster height in pixels." default:"600"`
}

func (c *HeatmapCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.Grid)
	if err != nil {
		return err
	}
	gr, err := loader.ParseGrid(data)
	if err != nil {
		return err
	}

	png, err := render.Heatmap(gr, render.Options{Width: c.Width, Height: c.Height})
	if err != nil {
		return err
	}
	return os.WriteFile(c.Out, png, 0o644)
}

type ImportGroundCmd struct {
	CSV       string `help:"EPA hourly-data CSV export." arg:"" type:"existingfile"`
	Parameter string `help:"Parameter name to keep." default:"Nitrogen dioxide (NO2)"`
}

func (c *ImportGroundCmd) Run(g *Globals) error {
	f, err := os.Open(c.CSV)
	if err != nil {
		return err
	}
	defer f.Close()

	ms, err := loader.ParseEPA(f, c.Parameter)
	if err != nil {
		return err
	}

	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := st.InsertGroundMeasurements(ms); err != nil {
		return err
	}
	log.Printf("imported %d measurements", len(ms))
	return nil
}

type FetchWeatherCmd struct {
	Latitude  float64 `help:"Site latitude." required:""`
	Longitude float64 `help:"Site longitude." required:""`
	Days      int     `help:"Days of hourly forecast to fetch." default:"2"`
}

func (c *FetchWeatherCmd) Run(g *Globals) error {
	p, err := geo.NewPoint(c.Latitude, c.Longitude)
	if err != nil {
		return err
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, c.Days-1)
	series, err := loader.NewOpenMeteo().FetchHourly(p, start, end)
	if err != nil {
		return err
	}
	return printJSON(series.Hours)
}

type FetchFiresCmd struct {
	West     float64 `help:"Bounding box west edge." required:""`
	South    float64 `help:"Bounding box south edge." required:""`
	East     float64 `help:"Bounding box east edge." required:""`
	North    float64 `help:"Bounding box north edge." required:""`
	Days     int     `help:"Trailing day range (1-10)." default:"1"`
	FirmsKey string  `help:"NASA FIRMS API key." env:"FIRMS_API_KEY" required:""`
}

func (c *FetchFiresCmd) Run(g *Globals) error {
	bounds, err := geo.NewBoundingBox(c.West, c.South, c.East, c.North)
	if err != nil {
		return err
	}

	fires, err := loader.NewFIRMS(c.FirmsKey).FetchArea(bounds, c.Days)
	if err != nil {
		return err
	}
	return printJSON(fires)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("atmoscast"),
		kong.Description("Grid-based atmospheric advection forecasting."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatal(err)
	}
}
