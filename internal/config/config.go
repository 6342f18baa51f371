package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"time"    // time parses durations and resolves timezones
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Connection settings are required; every
// scheduling tunable has a sensible default so a bare deployment only
// needs database credentials.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	Engine EngineConfig // scheduling and occupancy policy
}

// EngineConfig carries the reservation engine tunables: the restaurant's
// fixed timezone, meal durations, the occupancy ceiling and grace
// buffers, and the sweep cadence.
type EngineConfig struct {
	Timezone       *time.Location // all fuzzy dates resolve against this zone
	StrictDates    bool           // reject unrecognized date expressions instead of assuming tomorrow
	MealCutoff     string         // times before this are lunch (HH:MM)
	LunchDuration  time.Duration  // default lunch service duration
	DinnerDuration time.Duration  // default dinner service duration
	MaxOccupation  time.Duration  // hard ceiling on any table occupation
	ReleaseGrace   time.Duration  // buffer after estimated end before release
	WarningBuffer  time.Duration  // lead time for nearing-release warnings
	SweepInterval  time.Duration  // how often the sweeper scans occupied tables
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),      // environment (dev/test/prod)
		Port:   must("APP_PORT"),     // port to bind the HTTP server
		DBUser: must("DB_USER"),      // database user
		DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost: must("DB_HOST"),      // database host
		DBPort: must("DB_PORT"),      // database port
		DBName: must("DB_NAME"),      // database name
		Engine: LoadEngineConfig(),
	}
}

// LoadEngineConfig reads the scheduling tunables, applying defaults for
// anything unset: Europe/Madrid, lunch 120 min before 17:00, dinner
// 150 min, 2.5h occupation ceiling, 15 min grace, 30 min warning
// buffer, 30s sweep.
func LoadEngineConfig() EngineConfig {
	tzName := envStr("RESTAURANT_TIMEZONE", "Europe/Madrid")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid RESTAURANT_TIMEZONE %q: %v", tzName, err)
	}
	return EngineConfig{
		Timezone:       loc,
		StrictDates:    envBool("STRICT_DATES", true),
		MealCutoff:     envStr("MEAL_CUTOFF", "17:00"),
		LunchDuration:  time.Duration(envInt("LUNCH_DURATION_MIN", 120)) * time.Minute,
		DinnerDuration: time.Duration(envInt("DINNER_DURATION_MIN", 150)) * time.Minute,
		MaxOccupation:  time.Duration(envInt("MAX_OCCUPATION_MIN", 150)) * time.Minute,
		ReleaseGrace:   time.Duration(envInt("RELEASE_GRACE_MIN", 15)) * time.Minute,
		WarningBuffer:  time.Duration(envInt("WARNING_BUFFER_MIN", 30)) * time.Minute,
		SweepInterval:  envDur("SWEEP_INTERVAL", 30*time.Second),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
