package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"opensud/utils"
)

// ErrInvalidConfig marks configuration problems, they are reported before any work is done.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrHelp is returned when the usage was requested with --help.
var ErrHelp = pflag.ErrHelp

const (
	WarehouseBigQuery = "bigquery"
	WarehousePostgres = "postgres"
)

const (
	// RedownloadAsk asks on the terminal, and keeps the file when there is no terminal
	RedownloadAsk = "ask"
	// RedownloadYes always downloads again
	RedownloadYes = "yes"
	// RedownloadNo always keeps the existing file
	RedownloadNo = "no"
)

// Defaults
const (
	DefaultProject   = "open-sud"
	DefaultDataset   = "medicaid"
	DefaultTable     = "provider_spending"
	DefaultLocation  = "US"
	DefaultDataDir   = "data"
	DefaultTimeout   = 30 * time.Second
	DefaultChunkSize = 8 * datasize.MB
	DefaultDBHost    = "localhost"
	DefaultDBPort    = 5432
)

// Config represents the application configuration defined through various sources
// such as environment variables, a YAML file or command line arguments.
type Config struct {

	// Project the GCP project ID of the BigQuery warehouse
	Project string `yaml:"project"`
	// Dataset the BigQuery dataset, or the PostgreSQL schema
	Dataset string `yaml:"dataset"`
	// Table the destination table name
	Table string `yaml:"table"`
	// Location the BigQuery location (region) of the dataset
	Location string `yaml:"location"`

	// DataDir the directory for downloaded files
	DataDir string `yaml:"data_dir"`

	// DownloadOnly download the file, skip the warehouse load
	DownloadOnly bool `yaml:"download_only"`
	// LoadOnly skip the download and load the existing file
	LoadOnly bool `yaml:"load_only"`

	// Redownload the policy when the file already exists: ask, yes or no
	Redownload string `yaml:"redownload"`

	// Warehouse selects the load target implementation: bigquery or postgres
	Warehouse string `yaml:"warehouse"`

	// ChunkSize the size of a single download buffer
	ChunkSize datasize.ByteSize `yaml:"chunk_size"`
	// Timeout waiting for the first response of the remote server
	Timeout time.Duration `yaml:"timeout"`

	AWSRegion    string `yaml:"aws_region"`
	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBSSLMode  bool   `yaml:"db_sslmode"`

	JSONLogs bool `yaml:"json_logs"`
	DevLogs  bool `yaml:"dev_logs"`
	Verbose  bool `yaml:"verbose"`
	Trace    bool `yaml:"trace"`

	// ConfigFile an optional YAML file with the same keys as above
	ConfigFile string `yaml:"-"`
}

// Singleton initialization - it is lazy-loaded and thread-safe
var (
	// instance the actual configuration after checking all possible configuration sources
	instance *Config
	once     sync.Once
)

// GetConfig loads the configuration from the process arguments and environment once.
// Configuration errors terminate the program with exit code 2, --help with exit code 0.
func GetConfig() *Config {
	once.Do(func() {
		c, err := Load(os.Args[1:], os.Stderr)
		if errors.Is(err, ErrHelp) {
			os.Exit(0)
		}
		if err != nil {
			utils.Logger.Error("Configuration error", zap.Error(err))
			utils.Logger.Flush()
			os.Exit(2)
		}
		instance = c
	})
	return instance
}

// Load builds the configuration. The order of precedence is:
// defaults < environment (including ".env") < YAML file < explicitly set command line arguments.
func Load(args []string, output io.Writer) (*Config, error) {
	// first read the command line arguments because they can affect the rest of the initialization
	var argsInstance = &Config{}
	if err := argsInstance.loadFromArguments(args, output); err != nil {
		return nil, err
	}

	// the logger initialization should happen first of all
	utils.InitLogger(argsInstance.JSONLogs, argsInstance.DevLogs, argsInstance.Verbose, argsInstance.Trace)

	c := Defaults()
	c.loadFromEnv()
	if err := c.loadFromFile(argsInstance.ConfigFile); err != nil {
		return nil, err
	}
	c.override(argsInstance) // some arguments can override other configuration sources
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Defaults returns the configuration with all default values.
func Defaults() *Config {
	return &Config{
		Project:    DefaultProject,
		Dataset:    DefaultDataset,
		Table:      DefaultTable,
		Location:   DefaultLocation,
		DataDir:    DefaultDataDir,
		Redownload: RedownloadAsk,
		Warehouse:  WarehouseBigQuery,
		ChunkSize:  DefaultChunkSize,
		Timeout:    DefaultTimeout,
		DBHost:     DefaultDBHost,
		DBPort:     DefaultDBPort,
	}
}

// loadFromEnv loads ".env" from the working directory (existing variables take precedence)
// and then the known environment variables.
func (c *Config) loadFromEnv() {
	if err := godotenv.Load(); err == nil {
		utils.Logger.Debug("Loaded env file .env")
	}

	setString := func(target *string, names ...string) {
		for _, name := range names {
			if value := os.Getenv(name); strings.TrimSpace(value) != "" {
				*target = value
				return
			}
		}
	}
	setString(&c.Project, "OPENSUD_PROJECT", "GOOGLE_CLOUD_PROJECT")
	setString(&c.Dataset, "OPENSUD_DATASET")
	setString(&c.Table, "OPENSUD_TABLE")
	setString(&c.Location, "OPENSUD_LOCATION")
	setString(&c.DataDir, "OPENSUD_DATA_DIR")
	setString(&c.Warehouse, "OPENSUD_WAREHOUSE")
	setString(&c.AWSRegion, "AWS_REGION")
	setString(&c.DBHost, "PGHOST")
	setString(&c.DBName, "PGDATABASE")
	setString(&c.DBUser, "PGUSER")
	setString(&c.DBPassword, "PGPASSWORD")
	if port := os.Getenv("PGPORT"); port != "" {
		if value, err := strconv.Atoi(port); err == nil {
			c.DBPort = value
		} else {
			utils.Logger.Warn("Ignoring invalid PGPORT", zap.String("value", port))
		}
	}
}

// loadFromFile reads a YAML file, keys which are not present in the file keep their values.
func (c *Config) loadFromFile(path string) error {
	if path == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read config file '%s': %w", ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("%w: cannot parse config file '%s': %w", ErrInvalidConfig, path, err)
	}
	utils.Logger.Debug("Loaded config file", zap.String("path", path))
	return nil
}

// Validate checks the combination of the configuration values.
func (c *Config) Validate() error {
	if c.DownloadOnly && c.LoadOnly {
		return fmt.Errorf("%w: --download-only and --load-only are mutually exclusive", ErrInvalidConfig)
	}
	switch c.Redownload {
	case RedownloadAsk, RedownloadYes, RedownloadNo:
	default:
		return fmt.Errorf("%w: --redownload must be one of ask, yes, no; got '%s'", ErrInvalidConfig, c.Redownload)
	}
	switch c.Warehouse {
	case WarehouseBigQuery:
		if !c.DownloadOnly && strings.TrimSpace(c.Project) == "" {
			return fmt.Errorf("%w: the BigQuery project is required", ErrInvalidConfig)
		}
	case WarehousePostgres:
		if !c.DownloadOnly && strings.TrimSpace(c.DBName) == "" {
			return fmt.Errorf("%w: --db-name is required for the postgres warehouse", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: --warehouse must be bigquery or postgres; got '%s'", ErrInvalidConfig, c.Warehouse)
	}
	if strings.TrimSpace(c.Dataset) == "" || strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("%w: dataset and table must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data directory must not be empty", ErrInvalidConfig)
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	return nil
}

// loadFromArguments parses the command line. Only flags set explicitly are stored,
// so they override the other sources without clobbering them with defaults.
func (c *Config) loadFromArguments(args []string, output io.Writer) error {
	// First we define the structure of the command line arguments - before actually parsing them.
	fs := pflag.NewFlagSet("pipeline", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(output, "Download HHS Medicaid Provider Spending data and load it into a warehouse.\n\n")
		_, _ = fmt.Fprintf(output, "Usage of pipeline:\n")
		fs.PrintDefaults()
	}

	project := fs.String("project", "", fmt.Sprintf("GCP project ID (default: %s)", DefaultProject))
	dataset := fs.String("dataset", "", fmt.Sprintf("BigQuery dataset or PostgreSQL schema (default: %s)", DefaultDataset))
	table := fs.String("table", "", fmt.Sprintf("Destination table (default: %s)", DefaultTable))
	location := fs.String("location", "", fmt.Sprintf("BigQuery location (default: %s)", DefaultLocation))
	dataDir := fs.String("data-dir", "", fmt.Sprintf("Directory for downloaded files (default: %s)", DefaultDataDir))
	configFile := fs.String("config", "", "YAML configuration file (optional)")

	downloadOnly := fs.Bool("download-only", false, "Download file only, skip the warehouse load")
	loadOnly := fs.Bool("load-only", false, "Skip download, load the existing file into the warehouse")
	redownload := fs.String("redownload", "",
		"What to do when the file already exists: ask, yes or no (default: ask; no terminal means no)")

	warehouse := fs.String("warehouse", "", "Load target: bigquery or postgres (default: bigquery)")
	chunkSize := fs.String("chunk-size", "", fmt.Sprintf("Download buffer size (default: %s)", DefaultChunkSize.HR()))
	timeout := fs.Duration("timeout", 0, fmt.Sprintf("Timeout for the first response of the server (default: %s)", DefaultTimeout))

	awsRegion := fs.String("aws-region", "", "AWS Region for s3:// dataset URLs")
	awsAccessKey := fs.String("aws-access-key", "", "AWS Access Key (optional, the default credential chain is used otherwise)")
	awsSecretKey := fs.String("aws-secret-key", "", "AWS Secret Key")

	dbHost := fs.String("db-host", "", fmt.Sprintf("Database host (default: '%s')", DefaultDBHost))
	dbPort := fs.String("db-port", "", fmt.Sprintf("Database port (default: '%d')", DefaultDBPort))
	dbName := fs.String("db-name", "", "Database name (required for the postgres warehouse)")
	dbUser := fs.String("db-user", "", "Database username")
	dbPassword := fs.String("db-password", "", "Database password")
	dbSSLMode := fs.Bool("db-sslmode", false, "Require SSL for the database connection")

	jsonLogs := fs.Bool("json-logs", false, "Enable production JSON-formatted logs (false by default)")
	verboseLogs := fs.Bool("verbose", false, "Enable verbose DEBUG-level logging (false by default)")
	traceLogs := fs.Bool("trace", false, "Enable TRACE-level logging of every chunk and row (false by default)")
	developmentLogs := fs.Bool("dev-logs", false,
		"Enable development logs formatting with time stamps and source files (false by default)")

	// Parse the flags
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", ErrInvalidConfig, strings.Join(fs.Args(), " "))
	}

	// only now we can actually read the command line arguments and use them
	c.JSONLogs = *jsonLogs
	c.Verbose = *verboseLogs
	c.Trace = *traceLogs
	c.DevLogs = *developmentLogs
	c.DownloadOnly = *downloadOnly
	c.LoadOnly = *loadOnly
	c.DBSSLMode = *dbSSLMode

	stringFlags := map[*string]*string{
		project: &c.Project, dataset: &c.Dataset, table: &c.Table, location: &c.Location,
		dataDir: &c.DataDir, configFile: &c.ConfigFile, redownload: &c.Redownload, warehouse: &c.Warehouse,
		awsRegion: &c.AWSRegion, awsAccessKey: &c.AWSAccessKey, awsSecretKey: &c.AWSSecretKey,
		dbHost: &c.DBHost, dbName: &c.DBName, dbUser: &c.DBUser, dbPassword: &c.DBPassword,
	}
	for value, target := range stringFlags {
		if utils.IsNotBlank(value) {
			*target = *value
		}
	}

	if utils.IsNotBlank(chunkSize) {
		size, err := datasize.ParseString(*chunkSize)
		if err != nil {
			return fmt.Errorf("%w: invalid value for chunk-size: %w", ErrInvalidConfig, err)
		}
		c.ChunkSize = size
	}
	c.Timeout = *timeout
	if utils.IsNotBlank(dbPort) {
		port, err := strconv.Atoi(*dbPort)
		if err != nil {
			return fmt.Errorf("%w: invalid value for db-port: %w", ErrInvalidConfig, err)
		}
		c.DBPort = port
	}
	return nil
}

// override updates the current Config instance's fields by overriding them with non-zero values
// from another Config instance.
func (c *Config) override(argsInstance *Config) {
	v := reflect.ValueOf(argsInstance).Elem()
	t := reflect.TypeOf(argsInstance).Elem()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanInterface() {
			continue
		}

		// Get the corresponding field in the original 'c' structure
		cField := reflect.ValueOf(c).Elem().FieldByName(fieldType.Name)

		// Check if the field exists and is settable
		if cField.IsValid() && cField.CanSet() {
			switch field.Kind() {
			case reflect.String:
				if field.String() != "" {
					cField.Set(field)
				}
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if field.Int() != 0 {
					cField.Set(field)
				}
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if field.Uint() != 0 {
					cField.Set(field)
				}
			case reflect.Map, reflect.Slice, reflect.Ptr:
				if !field.IsNil() {
					cField.Set(field)
				}
			case reflect.Bool:
				if field.Bool() {
					cField.Set(field)
				}
			default:
				panic("unhandled default case")
			}
		}
	}
}
